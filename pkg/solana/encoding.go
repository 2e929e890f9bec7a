package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"io"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/solagent/solagent-go/pkg/solana/shortvec"
)

const versionPrefixMask = 0x80

var (
	ErrUnsupportedVersion = errors.New("unsupported message version")
	ErrLookupTableMissing = errors.New("address lookup table not provided")
)

func (t Transaction) Marshal() []byte {
	b := bytes.NewBuffer(nil)

	// Signatures
	_, _ = shortvec.EncodeLen(b, len(t.Signatures))
	for _, s := range t.Signatures {
		_, _ = b.Write(s[:])
	}

	// Message
	_, _ = b.Write(t.Message.Marshal())

	return b.Bytes()
}

// ToBase64 returns the wire encoding in standard base64, the encoding used by
// RPC submission and most remote transaction providers.
func (t Transaction) ToBase64() string {
	return base64.StdEncoding.EncodeToString(t.Marshal())
}

// ToBase58 returns the wire encoding in base58.
func (t Transaction) ToBase58() string {
	return base58.Encode(t.Marshal())
}

func (t *Transaction) Unmarshal(b []byte) error {
	buf := bytes.NewBuffer(b)

	sigLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read signature length")
	}

	t.Signatures = make([]Signature, sigLen)
	for i := 0; i < sigLen; i++ {
		if _, err = io.ReadFull(buf, t.Signatures[i][:]); err != nil {
			return errors.Wrapf(err, "failed to read signature at %d", i)
		}
	}

	if err := (&t.Message).Unmarshal(buf.Bytes()); err != nil {
		return err
	}

	if int(t.Message.Header.NumSignatures) != sigLen {
		return errors.Errorf("signature count mismatch: header requires %d, found %d", t.Message.Header.NumSignatures, sigLen)
	}

	return nil
}

func (m Message) Marshal() []byte {
	b := bytes.NewBuffer(nil)

	// A versioned message is prefixed with its version, and the high bit set.
	// Legacy messages have no prefix and start with the header.
	if m.version == MessageVersion0 {
		_ = b.WriteByte(versionPrefixMask | byte(m.version-MessageVersion0))
	}

	// Header
	_ = b.WriteByte(m.Header.NumSignatures)
	_ = b.WriteByte(m.Header.NumReadonlySigned)
	_ = b.WriteByte(m.Header.NumReadOnly)

	// Accounts
	_, _ = shortvec.EncodeLen(b, len(m.Accounts))
	for _, a := range m.Accounts {
		_, _ = b.Write(a)
	}

	// Recent Blockhash
	_, _ = b.Write(m.RecentBlockhash[:])

	// Instructions
	_, _ = shortvec.EncodeLen(b, len(m.Instructions))
	for _, i := range m.Instructions {
		_ = b.WriteByte(i.ProgramIndex)

		_, _ = shortvec.EncodeLen(b, len(i.Accounts))
		_, _ = b.Write(i.Accounts)

		_, _ = shortvec.EncodeLen(b, len(i.Data))
		_, _ = b.Write(i.Data)
	}

	if m.version == MessageVersionLegacy {
		return b.Bytes()
	}

	// Address table lookups
	_, _ = shortvec.EncodeLen(b, len(m.AddressTableLookups))
	for _, l := range m.AddressTableLookups {
		_, _ = b.Write(l.PublicKey)

		_, _ = shortvec.EncodeLen(b, len(l.WritableIndexes))
		_, _ = b.Write(l.WritableIndexes)

		_, _ = shortvec.EncodeLen(b, len(l.ReadonlyIndexes))
		_, _ = b.Write(l.ReadonlyIndexes)
	}

	return b.Bytes()
}

func (m *Message) Unmarshal(b []byte) (err error) {
	if len(b) == 0 {
		return errors.New("empty message")
	}

	buf := bytes.NewBuffer(b)

	m.version = MessageVersionLegacy
	if b[0]&versionPrefixMask != 0 {
		prefix, _ := buf.ReadByte()
		if prefix&^versionPrefixMask != 0 {
			return errors.Wrapf(ErrUnsupportedVersion, "version %d", prefix&^versionPrefixMask)
		}
		m.version = MessageVersion0
	}

	// Header
	if m.Header.NumSignatures, err = buf.ReadByte(); err != nil {
		return errors.Wrap(err, "failed to read num signatures")
	}
	if m.Header.NumReadonlySigned, err = buf.ReadByte(); err != nil {
		return errors.Wrap(err, "failed to read num readonly signatures")
	}
	if m.Header.NumReadOnly, err = buf.ReadByte(); err != nil {
		return errors.Wrap(err, "failed to read num readonly")
	}

	// Accounts
	accountLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read account len")
	}
	m.Accounts = make([]ed25519.PublicKey, accountLen)
	for i := 0; i < accountLen; i++ {
		m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		if _, err = io.ReadFull(buf, m.Accounts[i]); err != nil {
			return errors.Wrapf(err, "failed to read account at index %d", i)
		}
	}
	if int(m.Header.NumSignatures) > accountLen {
		return errors.Errorf("header requires %d signers but only %d accounts present", m.Header.NumSignatures, accountLen)
	}

	// Recent block hash
	if _, err = io.ReadFull(buf, m.RecentBlockhash[:]); err != nil {
		return errors.Wrap(err, "failed to read recent block hash")
	}

	// Instructions
	instructionLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read instruction len")
	}
	m.Instructions = make([]CompiledInstruction, instructionLen)
	for i := 0; i < instructionLen; i++ {
		var c CompiledInstruction

		if c.ProgramIndex, err = buf.ReadByte(); err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] program index", i)
		}

		indexLen, err := shortvec.DecodeLen(buf)
		if err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] account len", i)
		}
		c.Accounts = make([]byte, indexLen)
		if _, err = io.ReadFull(buf, c.Accounts); err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] accounts", i)
		}

		dataLen, err := shortvec.DecodeLen(buf)
		if err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] data len", i)
		}
		c.Data = make([]byte, dataLen)
		if _, err = io.ReadFull(buf, c.Data); err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] data", i)
		}

		m.Instructions[i] = c
	}

	m.AddressTableLookups = nil
	if m.version == MessageVersion0 {
		lookupLen, err := shortvec.DecodeLen(buf)
		if err != nil {
			return errors.Wrap(err, "failed to read address table lookup len")
		}
		for i := 0; i < lookupLen; i++ {
			var l MessageAddressTableLookup

			l.PublicKey = make([]byte, ed25519.PublicKeySize)
			if _, err = io.ReadFull(buf, l.PublicKey); err != nil {
				return errors.Wrapf(err, "failed to read lookup[%d] address", i)
			}
			if l.WritableIndexes, err = readIndexes(buf); err != nil {
				return errors.Wrapf(err, "failed to read lookup[%d] writable indexes", i)
			}
			if l.ReadonlyIndexes, err = readIndexes(buf); err != nil {
				return errors.Wrapf(err, "failed to read lookup[%d] readonly indexes", i)
			}

			m.AddressTableLookups = append(m.AddressTableLookups, l)
		}
	}

	if buf.Len() > 0 {
		return errors.Errorf("unexpected %d trailing bytes", buf.Len())
	}

	// Every index must reference a static or table loaded account.
	total := len(m.Accounts) + m.numLoadedAccounts()
	for i, c := range m.Instructions {
		if int(c.ProgramIndex) >= total {
			return errors.Errorf("program index out of range: %d:%d", i, c.ProgramIndex)
		}
		for _, index := range c.Accounts {
			if int(index) >= total {
				return errors.Errorf("account index out of range: %d:%d", i, index)
			}
		}
	}

	return nil
}

// DecompileInstructions recovers the instruction list of the message. Signer
// and writable flags are derived from the header and lookup sections. Tables
// referenced by the message's lookups must be provided.
func (m Message) DecompileInstructions(tables ...AddressLookupTable) ([]Instruction, error) {
	metas := make([]AccountMeta, 0, len(m.Accounts)+m.numLoadedAccounts())

	numSigners := int(m.Header.NumSignatures)
	numWritableSigners := numSigners - int(m.Header.NumReadonlySigned)
	numWritableUnsigned := len(m.Accounts) - numSigners - int(m.Header.NumReadOnly)
	for i, key := range m.Accounts {
		meta := AccountMeta{PublicKey: key}
		if i < numSigners {
			meta.IsSigner = true
			meta.IsWritable = i < numWritableSigners
		} else {
			meta.IsWritable = i-numSigners < numWritableUnsigned
		}
		metas = append(metas, meta)
	}

	var writable, readonly []AccountMeta
	for _, l := range m.AddressTableLookups {
		table, ok := findTable(tables, l.PublicKey)
		if !ok {
			return nil, errors.Wrap(ErrLookupTableMissing, base58.Encode(l.PublicKey))
		}

		for _, index := range l.WritableIndexes {
			if int(index) >= len(table.Addresses) {
				return nil, errors.Errorf("lookup index out of range: %s:%d", base58.Encode(l.PublicKey), index)
			}
			writable = append(writable, AccountMeta{PublicKey: table.Addresses[index], IsWritable: true})
		}
		for _, index := range l.ReadonlyIndexes {
			if int(index) >= len(table.Addresses) {
				return nil, errors.Errorf("lookup index out of range: %s:%d", base58.Encode(l.PublicKey), index)
			}
			readonly = append(readonly, AccountMeta{PublicKey: table.Addresses[index]})
		}
	}
	metas = append(metas, writable...)
	metas = append(metas, readonly...)

	instructions := make([]Instruction, len(m.Instructions))
	for i, c := range m.Instructions {
		if int(c.ProgramIndex) >= len(metas) {
			return nil, errors.Errorf("program index out of range: %d:%d", i, c.ProgramIndex)
		}

		instructions[i] = Instruction{
			Program: metas[c.ProgramIndex].PublicKey,
			Data:    c.Data,
		}
		for _, index := range c.Accounts {
			if int(index) >= len(metas) {
				return nil, errors.Errorf("account index out of range: %d:%d", i, index)
			}
			instructions[i].Accounts = append(instructions[i].Accounts, metas[index])
		}
	}

	return instructions, nil
}

func (m Message) numLoadedAccounts() int {
	var n int
	for _, l := range m.AddressTableLookups {
		n += len(l.WritableIndexes) + len(l.ReadonlyIndexes)
	}
	return n
}

func readIndexes(buf *bytes.Buffer) ([]byte, error) {
	n, err := shortvec.DecodeLen(buf)
	if err != nil {
		return nil, err
	}
	indexes := make([]byte, n)
	if _, err := io.ReadFull(buf, indexes); err != nil {
		return nil, err
	}
	return indexes, nil
}

func findTable(tables []AddressLookupTable, key ed25519.PublicKey) (AddressLookupTable, bool) {
	for _, t := range tables {
		if bytes.Equal(t.PublicKey, key) {
			return t, true
		}
	}
	return AddressLookupTable{}, false
}
