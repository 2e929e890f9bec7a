package metaplex

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	"github.com/mr-tron/base58"

	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/binary"
)

type Creator struct {
	Address  ed25519.PublicKey
	Verified bool
	Share    uint8
}

// Collection links an asset to the mint of its collection. It is always
// created unverified, and verified by a separate instruction.
type Collection struct {
	Verified bool
	Key      ed25519.PublicKey
}

// CollectionDetails marks the metadata as belonging to a sized collection
// parent.
type CollectionDetails struct {
	Size uint64
}

type DataV2 struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	Collection           *Collection
}

// Validate checks the limits the metadata program applies to DataV2.
func (d *DataV2) Validate() error {
	if len(d.Name) == 0 {
		return solana.NewValidationError("name", "must not be empty")
	}
	if len(d.Name) > MaxNameLength {
		return solana.NewValidationError("name", "must be at most %d bytes, got %d", MaxNameLength, len(d.Name))
	}
	if len(d.Symbol) > MaxSymbolLength {
		return solana.NewValidationError("symbol", "must be at most %d bytes, got %d", MaxSymbolLength, len(d.Symbol))
	}
	if len(d.URI) == 0 {
		return solana.NewValidationError("uri", "must not be empty")
	}
	if len(d.URI) > MaxURILength {
		return solana.NewValidationError("uri", "must be at most %d bytes, got %d", MaxURILength, len(d.URI))
	}
	for field, v := range map[string]string{"name": d.Name, "symbol": d.Symbol, "uri": d.URI} {
		if !utf8.ValidString(v) {
			return solana.NewValidationError(field, "must be valid utf-8")
		}
	}
	if d.SellerFeeBasisPoints > MaxSellerFeeBasisPoints {
		return solana.NewValidationError("seller_fee_basis_points", "must be at most %d, got %d", MaxSellerFeeBasisPoints, d.SellerFeeBasisPoints)
	}

	if len(d.Creators) > MaxCreators {
		return solana.NewValidationError("creators", "must have at most %d entries, got %d", MaxCreators, len(d.Creators))
	}
	if len(d.Creators) > 0 {
		var total int
		for i, c := range d.Creators {
			if len(c.Address) != ed25519.PublicKeySize {
				return solana.NewValidationError("creators", "entry %d has an invalid address", i)
			}
			for _, other := range d.Creators[:i] {
				if bytes.Equal(c.Address, other.Address) {
					return solana.NewValidationError("creators", "duplicate creator %s", base58.Encode(c.Address))
				}
			}
			total += int(c.Share)
		}
		if total != 100 {
			return solana.NewValidationError("creators", "shares must sum to 100, got %d", total)
		}
	}

	if d.Collection != nil {
		if len(d.Collection.Key) != ed25519.PublicKeySize {
			return solana.NewValidationError("collection", "invalid collection mint")
		}
		if d.Collection.Verified {
			return solana.NewValidationError("collection", "must be created unverified")
		}
	}

	return nil
}

func (d *DataV2) encode(e *binary.Encoder) {
	e.String(d.Name).
		String(d.Symbol).
		String(d.URI).
		U16(d.SellerFeeBasisPoints)

	if len(d.Creators) == 0 {
		e.Bool(false)
	} else {
		e.Bool(true).U32(uint32(len(d.Creators)))
		for _, c := range d.Creators {
			e.Key(c.Address).Bool(c.Verified).U8(c.Share)
		}
	}

	if d.Collection == nil {
		e.Bool(false)
	} else {
		e.Bool(true).Bool(d.Collection.Verified).Key(d.Collection.Key)
	}

	// uses
	e.Bool(false)
}

func (d *DataV2) decode(dec *binary.Decoder) {
	d.Name = dec.Str()
	d.Symbol = dec.Str()
	d.URI = dec.Str()
	d.SellerFeeBasisPoints = dec.U16()

	if dec.Bool() {
		n := dec.U32()
		if n > MaxCreators {
			n = 0
		}
		for i := uint32(0); i < n; i++ {
			d.Creators = append(d.Creators, Creator{
				Address:  dec.Key(),
				Verified: dec.Bool(),
				Share:    dec.U8(),
			})
		}
	}

	if dec.Bool() {
		d.Collection = &Collection{
			Verified: dec.Bool(),
			Key:      dec.Key(),
		}
	}

	// uses
	if dec.Bool() {
		dec.U8()
		dec.U64()
		dec.U64()
	}
}
