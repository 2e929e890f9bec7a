package binary

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
)

// Encoder writes little endian, borsh compatible instruction and account
// layouts. The first error encountered is sticky and returned by Bytes.
type Encoder struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

func NewEncoder() *Encoder {
	e := &Encoder{}
	e.enc = bin.NewBorshEncoder(&e.buf)
	return e
}

func (e *Encoder) do(f func() error) *Encoder {
	if e.err == nil {
		e.err = f()
	}
	return e
}

func (e *Encoder) U8(v uint8) *Encoder {
	return e.do(func() error { return e.enc.WriteByte(v) })
}

func (e *Encoder) U16(v uint16) *Encoder {
	return e.do(func() error { return e.enc.WriteUint16(v, bin.LE) })
}

func (e *Encoder) U32(v uint32) *Encoder {
	return e.do(func() error { return e.enc.WriteUint32(v, bin.LE) })
}

func (e *Encoder) U64(v uint64) *Encoder {
	return e.do(func() error { return e.enc.WriteUint64(v, bin.LE) })
}

func (e *Encoder) Bool(v bool) *Encoder {
	return e.do(func() error { return e.enc.WriteBool(v) })
}

// Key writes a raw 32 byte public key.
func (e *Encoder) Key(key ed25519.PublicKey) *Encoder {
	return e.do(func() error {
		if len(key) != ed25519.PublicKeySize {
			return errors.Errorf("invalid key length: %d", len(key))
		}
		return e.enc.WriteBytes(key, false)
	})
}

// String writes a u32 length prefixed utf-8 string.
func (e *Encoder) String(s string) *Encoder {
	return e.do(func() error {
		if !utf8.ValidString(s) {
			return errors.New("string is not valid utf-8")
		}
		if err := e.enc.WriteUint32(uint32(len(s)), bin.LE); err != nil {
			return err
		}
		return e.enc.WriteBytes([]byte(s), false)
	})
}

// OptionKey writes a borsh Option<Pubkey>, with a one byte tag.
func (e *Encoder) OptionKey(key ed25519.PublicKey) *Encoder {
	if len(key) == 0 {
		return e.Bool(false)
	}
	return e.Bool(true).Key(key)
}

// OptionU64 writes a borsh Option<u64>, with a one byte tag.
func (e *Encoder) OptionU64(v *uint64) *Encoder {
	if v == nil {
		return e.Bool(false)
	}
	return e.Bool(true).U64(*v)
}

// COptionKey writes a COption<Pubkey>, which uses a four byte tag and always
// occupies the full width.
func (e *Encoder) COptionKey(key ed25519.PublicKey) *Encoder {
	if len(key) == 0 {
		return e.U32(0).Key(make([]byte, ed25519.PublicKeySize))
	}
	return e.U32(1).Key(key)
}

// COptionU64 writes a COption<u64>.
func (e *Encoder) COptionU64(v *uint64) *Encoder {
	if v == nil {
		return e.U32(0).U64(0)
	}
	return e.U32(1).U64(*v)
}

func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}
