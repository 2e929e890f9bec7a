package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	lookupTableDiscriminator = 1
	lookupTableMetadataSize  = 56
	lookupTableMaxAddresses  = 256
)

var (
	ErrInvalidLookupTableAccount = errors.New("invalid address lookup table account")
)

// AddressLookupTableProgramKey is the on-chain program owning lookup tables.
var AddressLookupTableProgramKey = mustDecodeKey("AddressLookupTab1e1111111111111111111111111")

// AddressLookupTable is the set of addresses a v0 message may reference by
// index instead of embedding statically.
type AddressLookupTable struct {
	PublicKey ed25519.PublicKey
	Addresses []ed25519.PublicKey
}

// ParseAddressLookupTable decodes the account data of a lookup table stored at
// address.
//
// Layout: u32 discriminator, u64 deactivation slot, u64 last extended slot,
// u8 start index, optional authority, padding to 56 bytes, then addresses.
func ParseAddressLookupTable(address ed25519.PublicKey, data []byte) (AddressLookupTable, error) {
	if len(data) < lookupTableMetadataSize {
		return AddressLookupTable{}, errors.Wrapf(ErrInvalidLookupTableAccount, "size %d", len(data))
	}
	if binary.LittleEndian.Uint32(data) != lookupTableDiscriminator {
		return AddressLookupTable{}, errors.Wrap(ErrInvalidLookupTableAccount, "unexpected discriminator")
	}

	raw := data[lookupTableMetadataSize:]
	if len(raw)%ed25519.PublicKeySize != 0 || len(raw)/ed25519.PublicKeySize > lookupTableMaxAddresses {
		return AddressLookupTable{}, errors.Wrapf(ErrInvalidLookupTableAccount, "address section size %d", len(raw))
	}

	table := AddressLookupTable{
		PublicKey: address,
		Addresses: make([]ed25519.PublicKey, len(raw)/ed25519.PublicKeySize),
	}
	for i := range table.Addresses {
		table.Addresses[i] = append(ed25519.PublicKey{}, raw[i*ed25519.PublicKeySize:(i+1)*ed25519.PublicKeySize]...)
	}
	return table, nil
}

type SortableAddressLookupTables []AddressLookupTable

func (s SortableAddressLookupTables) Len() int {
	return len(s)
}

func (s SortableAddressLookupTables) Less(i int, j int) bool {
	return bytes.Compare(s[i].PublicKey, s[j].PublicKey) < 0
}

func (s SortableAddressLookupTables) Swap(i int, j int) {
	s[i], s[j] = s[j], s[i]
}
