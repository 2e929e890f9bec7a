package binary

import (
	"crypto/ed25519"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
)

// Decoder reads the layouts written by Encoder. Like Encoder, the first error
// is sticky; reads after a failure return zero values.
type Decoder struct {
	dec *bin.Decoder
	err error
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{dec: bin.NewBorshDecoder(b)}
}

func (d *Decoder) U8() uint8 {
	if d.err != nil {
		return 0
	}
	var v uint8
	v, d.err = d.dec.ReadByte()
	return v
}

func (d *Decoder) U16() uint16 {
	if d.err != nil {
		return 0
	}
	var v uint16
	v, d.err = d.dec.ReadUint16(bin.LE)
	return v
}

func (d *Decoder) U32() uint32 {
	if d.err != nil {
		return 0
	}
	var v uint32
	v, d.err = d.dec.ReadUint32(bin.LE)
	return v
}

func (d *Decoder) U64() uint64 {
	if d.err != nil {
		return 0
	}
	var v uint64
	v, d.err = d.dec.ReadUint64(bin.LE)
	return v
}

func (d *Decoder) Bool() bool {
	return d.U8() != 0
}

func (d *Decoder) Key() ed25519.PublicKey {
	if d.err != nil {
		return nil
	}
	var b []byte
	b, d.err = d.dec.ReadNBytes(ed25519.PublicKeySize)
	if d.err != nil {
		return nil
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, b)
	return key
}

func (d *Decoder) Str() string {
	n := d.U32()
	if d.err != nil {
		return ""
	}
	if int(n) > d.dec.Remaining() {
		d.err = errors.Errorf("string length %d exceeds remaining %d bytes", n, d.dec.Remaining())
		return ""
	}
	var b []byte
	b, d.err = d.dec.ReadNBytes(int(n))
	return string(b)
}

// COptionKey reads a COption<Pubkey>, returning nil when unset.
func (d *Decoder) COptionKey() ed25519.PublicKey {
	tag := d.U32()
	key := d.Key()
	if tag == 0 {
		return nil
	}
	return key
}

// COptionU64 reads a COption<u64>, returning nil when unset.
func (d *Decoder) COptionU64() *uint64 {
	tag := d.U32()
	v := d.U64()
	if tag == 0 || d.err != nil {
		return nil
	}
	return &v
}

func (d *Decoder) Remaining() int {
	return d.dec.Remaining()
}

func (d *Decoder) Err() error {
	return d.err
}
