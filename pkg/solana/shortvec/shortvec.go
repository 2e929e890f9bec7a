package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedLen = 3

// EncodeLen encodes the specified len into the writer.
//
// If len > math.MaxUint16, an error is returned.
func EncodeLen(w io.Writer, len int) (n int, err error) {
	if len < 0 || len > math.MaxUint16 {
		return 0, errors.Errorf("len outside [0, %d]", math.MaxUint16)
	}

	var buf [maxEncodedLen]byte
	for {
		buf[n] = byte(len & 0x7f)
		len >>= 7
		if len == 0 {
			n++
			break
		}

		buf[n] |= 0x80
		n++
	}

	return w.Write(buf[:n])
}

// DecodeLen decodes a shortvec encoded len from the reader. Encodings longer
// than three bytes, non-canonical encodings, and values above math.MaxUint16
// are rejected.
func DecodeLen(r io.Reader) (val int, err error) {
	var b [1]byte

	for offset := 0; offset < maxEncodedLen; offset++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			if offset > 0 && err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}

		if offset > 0 && b[0] == 0 {
			return 0, errors.New("non-canonical shortvec encoding")
		}

		val |= int(b[0]&0x7f) << (offset * 7)
		if b[0]&0x80 == 0 {
			if val > math.MaxUint16 {
				return 0, errors.Errorf("len exceeds %d", math.MaxUint16)
			}
			return val, nil
		}
	}

	return 0, errors.Errorf("invalid size (max %d)", maxEncodedLen)
}
