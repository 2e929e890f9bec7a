package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

type MessageVersion uint8

const (
	MessageVersionLegacy MessageVersion = iota
	MessageVersion0
)

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

type MessageAddressTableLookup struct {
	PublicKey       ed25519.PublicKey
	WritableIndexes []byte
	ReadonlyIndexes []byte
}

type Message struct {
	version             MessageVersion
	Header              Header
	Accounts            []ed25519.PublicKey
	RecentBlockhash     Blockhash
	Instructions        []CompiledInstruction
	AddressTableLookups []MessageAddressTableLookup
}

// Version returns the wire version of the message.
func (m Message) Version() MessageVersion {
	return m.version
}

// InstructionAt returns the compiled instruction at index. The program and
// every account it references must be static account keys of the message;
// accounts loaded through lookup tables are resolved by DecompileInstructions.
func (m Message) InstructionAt(index int) (CompiledInstruction, error) {
	if index < 0 || index >= len(m.Instructions) {
		return CompiledInstruction{}, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if int(i.ProgramIndex) >= len(m.Accounts) {
		return CompiledInstruction{}, errors.Wrapf(ErrAccountIndexOutOfRange, "program index %d", i.ProgramIndex)
	}
	for _, account := range i.Accounts {
		if int(account) >= len(m.Accounts) {
			return CompiledInstruction{}, errors.Wrapf(ErrAccountIndexOutOfRange, "account index %d", account)
		}
	}
	return i, nil
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles a legacy transaction paid for by payer.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	return newTransaction(payer, nil, instructions)
}

// NewVersionedTransaction compiles a v0 transaction, loading eligible accounts
// through the provided address lookup tables.
func NewVersionedTransaction(payer ed25519.PublicKey, addressLookupTables []AddressLookupTable, instructions []Instruction) Transaction {
	tx := newTransaction(payer, addressLookupTables, instructions)
	tx.Message.version = MessageVersion0
	return tx
}

func newTransaction(payer ed25519.PublicKey, addressLookupTables []AddressLookupTable, instructions []Instruction) Transaction {
	accounts := []AccountMeta{
		{
			PublicKey:  payer,
			IsSigner:   true,
			IsWritable: true,
			isPayer:    true,
		},
	}

	for _, i := range instructions {
		accounts = append(accounts, AccountMeta{
			PublicKey: i.Program,
			isProgram: true,
		})
		accounts = append(accounts, i.Accounts...)
	}

	// Payer first, then signers, then writable accounts, with programs placed
	// after the accounts sharing their permissions.
	accounts = filterUnique(accounts)
	slices.SortFunc(accounts, compareAccountMeta)

	sortedTables := make([]AddressLookupTable, len(addressLookupTables))
	copy(sortedTables, addressLookupTables)
	sort.Sort(SortableAddressLookupTables(sortedTables))

	writableIndexes := make([][]byte, len(sortedTables))
	readonlyIndexes := make([][]byte, len(sortedTables))

	var m Message
	for _, account := range accounts {
		if !account.isPayer && !account.IsSigner && !account.isProgram {
			tableIndex, addressIndex := findInTables(sortedTables, account.PublicKey)
			if tableIndex >= 0 {
				if account.IsWritable {
					writableIndexes[tableIndex] = append(writableIndexes[tableIndex], byte(addressIndex))
				} else {
					readonlyIndexes[tableIndex] = append(readonlyIndexes[tableIndex], byte(addressIndex))
				}
				continue
			}
		}

		m.Accounts = append(m.Accounts, account.PublicKey)

		if account.IsSigner {
			m.Header.NumSignatures++

			if !account.IsWritable {
				m.Header.NumReadonlySigned++
			}
		} else if !account.IsWritable {
			m.Header.NumReadOnly++
		}
	}

	// Index references cover the static accounts, followed by every writable
	// loaded account, followed by every readonly loaded account.
	allAccounts := append([]ed25519.PublicKey{}, m.Accounts...)
	for i, indexes := range writableIndexes {
		for _, index := range indexes {
			allAccounts = append(allAccounts, sortedTables[i].Addresses[index])
		}
	}
	for i, indexes := range readonlyIndexes {
		for _, index := range indexes {
			allAccounts = append(allAccounts, sortedTables[i].Addresses[index])
		}
	}

	for _, i := range instructions {
		c := CompiledInstruction{
			ProgramIndex: byte(indexOf(allAccounts, i.Program)),
			Data:         i.Data,
		}

		for _, a := range i.Accounts {
			c.Accounts = append(c.Accounts, byte(indexOf(allAccounts, a.PublicKey)))
		}

		m.Instructions = append(m.Instructions, c)
	}

	for i, table := range sortedTables {
		if len(writableIndexes[i]) == 0 && len(readonlyIndexes[i]) == 0 {
			continue
		}

		m.AddressTableLookups = append(m.AddressTableLookups, MessageAddressTableLookup{
			PublicKey:       table.PublicKey,
			WritableIndexes: writableIndexes[i],
			ReadonlyIndexes: readonlyIndexes[i],
		})
	}
	if len(m.AddressTableLookups) > 0 {
		m.version = MessageVersion0
	}

	for i := range m.Accounts {
		if len(m.Accounts[i]) == 0 {
			m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		}
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// Signature returns the fee payer's signature, which identifies the
// transaction on the ledger.
func (t *Transaction) Signature() Signature {
	if len(t.Signatures) == 0 {
		return Signature{}
	}
	return t.Signatures[0]
}

// FeePayer returns the account paying for the transaction.
func (t *Transaction) FeePayer() ed25519.PublicKey {
	if len(t.Message.Accounts) == 0 {
		return nil
	}
	return t.Message.Accounts[0]
}

// SetBlockhash binds the freshness token. Any existing signatures cover the
// previous blockhash and are no longer valid, so they're cleared.
func (t *Transaction) SetBlockhash(bh Blockhash) {
	if t.Message.RecentBlockhash != bh {
		t.ClearSignatures()
	}
	t.Message.RecentBlockhash = bh
}

// ClearSignatures zeroes every signature slot.
func (t *Transaction) ClearSignatures() {
	for i := range t.Signatures {
		t.Signatures[i] = Signature{}
	}
}

// RequiredSigners returns the addresses whose signatures the message
// requires, in signature slot order.
func (t *Transaction) RequiredSigners() []ed25519.PublicKey {
	n := int(t.Message.Header.NumSignatures)
	if n > len(t.Message.Accounts) {
		n = len(t.Message.Accounts)
	}
	return t.Message.Accounts[:n]
}

// Sign signs the message with each of the provided signers. Every signer must
// be a required signer of the message.
func (t *Transaction) Sign(signers ...Signer) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.PublicKey()
		index := indexOf(t.Message.Accounts, pub)
		if index < 0 {
			return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
		}
		if index >= len(t.Signatures) {
			return errors.Errorf("signing account %s is not in the list of signers", base58.Encode(pub))
		}

		sig, err := s.Sign(messageBytes)
		if err != nil {
			return errors.Wrapf(err, "failed to sign with %s", base58.Encode(pub))
		}
		if len(sig) != ed25519.SignatureSize {
			return errors.Errorf("invalid signature size from %s: %d", base58.Encode(pub), len(sig))
		}

		copy(t.Signatures[index][:], sig)
	}

	return nil
}

// VerifySignatures checks every signature slot against the message. Slots
// that are empty or invalid are reported in a MissingSignerError.
func (t *Transaction) VerifySignatures() error {
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return errors.Errorf("signature count mismatch: %d != %d", len(t.Signatures), t.Message.Header.NumSignatures)
	}

	messageBytes := t.Message.Marshal()

	var missing []ed25519.PublicKey
	for i, signer := range t.RequiredSigners() {
		if !ed25519.Verify(signer, messageBytes, t.Signatures[i][:]) {
			missing = append(missing, signer)
		}
	}
	if len(missing) > 0 {
		return &MissingSignerError{Missing: missing}
	}
	return nil
}

func (t *Transaction) String() string {
	var sb strings.Builder
	sb.WriteString("Signatures:\n")
	for i, s := range t.Signatures {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", i, base58.Encode(s[:])))
	}
	sb.WriteString("Message:\n")
	sb.WriteString(fmt.Sprintf("  Version: %s\n", t.Message.version.String()))
	sb.WriteString(fmt.Sprintf("  Blockhash: %s\n", t.Message.RecentBlockhash))
	sb.WriteString("  Header:\n")
	sb.WriteString(fmt.Sprintf("    NumSignatures: %d\n", t.Message.Header.NumSignatures))
	sb.WriteString(fmt.Sprintf("    NumReadOnly: %d\n", t.Message.Header.NumReadOnly))
	sb.WriteString(fmt.Sprintf("    NumReadOnlySigned: %d\n", t.Message.Header.NumReadonlySigned))
	sb.WriteString("  Static Accounts:\n")
	for i, a := range t.Message.Accounts {
		sb.WriteString(fmt.Sprintf("    %d: %s\n", i, base58.Encode(a)))
	}
	sb.WriteString("  Instructions:\n")
	for i, c := range t.Message.Instructions {
		sb.WriteString(fmt.Sprintf("    %d: program=%d accounts=%v data=%x\n", i, c.ProgramIndex, c.Accounts, c.Data))
	}
	for _, l := range t.Message.AddressTableLookups {
		sb.WriteString(fmt.Sprintf("  Lookup %s: writable=%v readonly=%v\n", base58.Encode(l.PublicKey), l.WritableIndexes, l.ReadonlyIndexes))
	}
	return sb.String()
}

func findInTables(tables []AddressLookupTable, key ed25519.PublicKey) (int, int) {
	for i, table := range tables {
		if j := indexOf(table.Addresses, key); j >= 0 {
			return i, j
		}
	}
	return -1, -1
}

func filterUnique(accounts []AccountMeta) []AccountMeta {
	filtered := make([]AccountMeta, 0, len(accounts))

	for i := range accounts {
		for j := range filtered {
			// Seen before, so promote any permissions.
			if bytes.Equal(accounts[i].PublicKey, filtered[j].PublicKey) {
				if accounts[i].IsSigner {
					filtered[j].IsSigner = true
				}
				if accounts[i].IsWritable {
					filtered[j].IsWritable = true
				}
				if accounts[i].isPayer {
					filtered[j].isPayer = true
				}
				if accounts[i].isProgram {
					filtered[j].isProgram = true
				}

				goto next
			}
		}

		filtered = append(filtered, accounts[i])
	next:
	}

	return filtered
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}

func (v MessageVersion) String() string {
	switch v {
	case MessageVersionLegacy:
		return "legacy"
	case MessageVersion0:
		return "v0"
	}
	return "unknown"
}
