package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"hash"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramAddress(t *testing.T) {
	exceededSeed := make([]byte, maxSeedLength+1)
	maxSeed := make([]byte, maxSeedLength)

	// The typo here was taken directly from the Solana test case,
	// which was used to derive the expected outputs.
	publicKey, err := base58.Decode("SeedPubey1111111111111111111111111111111111")
	require.NoError(t, err)
	programID, err := base58.Decode("BPFLoader1111111111111111111111111111111111")
	require.NoError(t, err)

	_, err = CreateProgramAddress(programID, exceededSeed)
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)
	_, err = CreateProgramAddress(programID, []byte("short seed"), exceededSeed)
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(programID, maxSeed)
	assert.NoError(t, err)

	tooMany := make([][]byte, maxSeeds+1)
	_, err = CreateProgramAddress(programID, tooMany...)
	assert.Equal(t, ErrTooManySeeds, err)

	cases := []struct {
		expected string
		input    [][]byte
	}{
		{
			expected: "3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT",
			input:    [][]byte{{}, {1}},
		},
		{
			expected: "7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7",
			input:    [][]byte{[]byte("☉")},
		},
		{
			expected: "HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds",
			input:    [][]byte{[]byte("Talking"), []byte("Squirrels")},
		},
		{
			expected: "GUs5qLUfsEHkcMB9T38vjr18ypEhRuNWiePW2LoK4E3K",
			input:    [][]byte{publicKey},
		},
	}

	for _, tc := range cases {
		key, err := CreateProgramAddress(programID, tc.input...)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, base58.Encode(key))
		assert.False(t, IsOnCurve(key))
	}
}

type fixedHash struct {
	sumResult []byte
}

func (h *fixedHash) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func (h *fixedHash) Sum(b []byte) []byte {
	return h.sumResult
}

func (h *fixedHash) Reset() {
}

func (h *fixedHash) Size() int {
	return sha256.Size
}

func (h *fixedHash) BlockSize() int {
	return sha256.BlockSize
}

func withFixedHash(t *testing.T, result []byte) {
	programHashCtor = func() hash.Hash {
		return &fixedHash{sumResult: result}
	}
	t.Cleanup(func() {
		programHashCtor = sha256.New
	})
}

func TestCreateProgramAddress_OnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	withFixedHash(t, pub)

	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = CreateProgramAddress(programID, []byte("Lil'"), []byte("Bits"))
	assert.Equal(t, ErrInvalidPublicKey, err)
}

func TestFindProgramAddress_Exhausted(t *testing.T) {
	// Every candidate hashes to a valid curve point, so no bump can succeed.
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	withFixedHash(t, pub)

	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	addr, bump, err := FindProgramAddressAndBump(programID, []byte("seed"))
	require.Error(t, err)
	assert.Nil(t, addr)
	assert.EqualValues(t, 0, bump)
	assert.True(t, IsDerivation(err))
	assert.True(t, errors.Is(err, ErrBumpSeedExhausted))

	var derivationErr *DerivationError
	require.True(t, errors.As(err, &derivationErr))
	assert.EqualValues(t, programID, derivationErr.Program)
}

func TestFindProgramAddress_SeedTooLong(t *testing.T) {
	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, _, err = FindProgramAddressAndBump(programID, make([]byte, maxSeedLength+1))
	assert.True(t, IsDerivation(err))
	assert.True(t, errors.Is(err, ErrMaxSeedLengthExceeded))
}

func TestFindProgramAddress(t *testing.T) {
	for i := 0; i < 1000; i++ {
		programID, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		_, err = FindProgramAddress(programID, []byte("Lil'"), []byte("Bits"))
		assert.NoError(t, err)
	}
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	mint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	first, firstBump, err := DeriveAddress("metadata", programID, programID, mint)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		addr, bump, err := DeriveAddress("metadata", programID, programID, mint)
		require.NoError(t, err)
		assert.EqualValues(t, first, addr)
		assert.Equal(t, firstBump, bump)
	}

	// The bump is the highest seed producing an off curve address.
	expected, err := CreateProgramAddress(programID, []byte("metadata"), programID, mint, []byte{firstBump})
	require.NoError(t, err)
	assert.EqualValues(t, expected, first)
	for b := 255; b > int(firstBump); b-- {
		_, err := CreateProgramAddress(programID, []byte("metadata"), programID, mint, []byte{byte(b)})
		assert.Equal(t, ErrInvalidPublicKey, err)
	}

	other, _, err := DeriveAddress("edition", programID, programID, mint)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestFindProgramAddress_Ref(t *testing.T) {
	references := []struct {
		programID string
		expected  string
	}{
		{
			programID: "4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM",
			expected:  "Bn9pAWUXWc5Kd849xTkQcHqiCbHUEizLFn4r5Cf8XYnd",
		},
		{
			programID: "8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh",
			expected:  "oDvUHiiGdMo31xYzjefAzUekWH8EbCKrxgs2FkyTs1S",
		},
		{
			programID: "CiDwVBFgWV9E5MvXWoLgnEgn2hK7rJikbvfWavzAQz3",
			expected:  "B2vBn2bmF9GuaGkebrm8oUqDC34pE6m4bagjNcVE6msv",
		},
		{
			programID: "GcdayuLaLyrdmUu324nahyv33G5poQdLUEZ1nEytDeP",
			expected:  "2mN5Nfq9v1EwTV9FPTHPESZ3XiZce9wi5PQoULFuxvev",
		},
		{
			programID: "LX3EUdRUBUa3TbsYXLEUdj9J3prXkWXvLYSWyYyc2Jj",
			expected:  "9CqF6oTZtW5zSeoLnZRoQmj3s2tXGPqifM1W8Z8LVE1z",
		},
		{
			programID: "QRSsyMWN1yHT9ir42bgNZUNZ4PdEhcSWCrL2AryKpy5",
			expected:  "FwBDYafabYZLDC8FwaDCsLxWkKnaQxKuQv3afDAGiXJ8",
		},
	}

	for _, r := range references {
		programID, err := base58.Decode(r.programID)
		require.NoError(t, err)

		pub, err := FindProgramAddress(programID, []byte("Lil'"), []byte("Bits"))
		require.NoError(t, err)
		assert.Equal(t, r.expected, base58.Encode(pub))
	}
}
