// Package extrameta encodes, decodes and resolves the extra-account-meta
// list a transfer-hook program stores for a mint.
package extrameta

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
)

// Layout sizes.
const (
	MetaSize          = 35 // discriminator + address config + signer + writable
	addressConfigSize = 32
	headerSize        = 8 + 4 // instruction discriminator + value length
	countSize         = 4
)

// Discriminator values of an ExtraAccountMeta.
const (
	// DiscriminatorPubkey marks a fixed address.
	DiscriminatorPubkey uint8 = 0
	// DiscriminatorHookPDA marks a PDA of the hook program.
	DiscriminatorHookPDA uint8 = 1
	// DiscriminatorExternalPDA is added to the index of the account whose
	// key is the deriving program.
	DiscriminatorExternalPDA uint8 = 128
)

// ExecuteDiscriminator tags the list with the interface instruction it serves.
var ExecuteDiscriminator = func() [8]byte {
	sum := sha256.Sum256([]byte("spl-transfer-hook-interface:execute"))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

var (
	ErrInvalidList      = errors.New("invalid extra account meta list")
	ErrSeedConfigTooBig = errors.New("seed configuration exceeds 32 bytes")
)

// ExtraAccountMeta describes one account the hook needs on every transfer.
type ExtraAccountMeta struct {
	Discriminator uint8
	AddressConfig [addressConfigSize]byte
	IsSigner      bool
	IsWritable    bool
}

// NewPubkeyMeta returns a meta for a fixed address.
func NewPubkeyMeta(key sol.PublicKey, signer, writable bool) ExtraAccountMeta {
	return ExtraAccountMeta{
		Discriminator: DiscriminatorPubkey,
		AddressConfig: key,
		IsSigner:      signer,
		IsWritable:    writable,
	}
}

// NewSeedsMeta returns a meta for a PDA of the hook program.
func NewSeedsMeta(seeds []Seed, signer, writable bool) (ExtraAccountMeta, error) {
	cfg, err := PackSeeds(seeds)
	if err != nil {
		return ExtraAccountMeta{}, err
	}
	return ExtraAccountMeta{
		Discriminator: DiscriminatorHookPDA,
		AddressConfig: cfg,
		IsSigner:      signer,
		IsWritable:    writable,
	}, nil
}

// NewExternalPDAMeta returns a meta for a PDA of the program found at
// programIndex in the execute account list.
func NewExternalPDAMeta(programIndex uint8, seeds []Seed, signer, writable bool) (ExtraAccountMeta, error) {
	if programIndex >= DiscriminatorExternalPDA {
		return ExtraAccountMeta{}, fmt.Errorf("program index %d out of range", programIndex)
	}
	cfg, err := PackSeeds(seeds)
	if err != nil {
		return ExtraAccountMeta{}, err
	}
	return ExtraAccountMeta{
		Discriminator: DiscriminatorExternalPDA + programIndex,
		AddressConfig: cfg,
		IsSigner:      signer,
		IsWritable:    writable,
	}, nil
}

// Size returns the account size of a list holding n metas.
func Size(n int) int {
	return headerSize + countSize + n*MetaSize
}

// Pack encodes metas as the TLV list stored in the validation account.
func Pack(metas []ExtraAccountMeta) []byte {
	data := make([]byte, Size(len(metas)))
	copy(data[0:8], ExecuteDiscriminator[:])
	binary.LittleEndian.PutUint32(data[8:12], uint32(countSize+len(metas)*MetaSize))
	binary.LittleEndian.PutUint32(data[12:16], uint32(len(metas)))
	off := headerSize + countSize
	for _, m := range metas {
		data[off] = m.Discriminator
		copy(data[off+1:off+33], m.AddressConfig[:])
		data[off+33] = boolByte(m.IsSigner)
		data[off+34] = boolByte(m.IsWritable)
		off += MetaSize
	}
	return data
}

// Unpack decodes the list stored in a validation account.
func Unpack(data []byte) ([]ExtraAccountMeta, error) {
	if len(data) < headerSize+countSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidList, len(data))
	}
	var disc [8]byte
	copy(disc[:], data[0:8])
	if disc != ExecuteDiscriminator {
		return nil, fmt.Errorf("%w: unexpected discriminator", ErrInvalidList)
	}
	length := int(binary.LittleEndian.Uint32(data[8:12]))
	if headerSize+length > len(data) || length < countSize {
		return nil, fmt.Errorf("%w: length %d exceeds data", ErrInvalidList, length)
	}
	count := int(binary.LittleEndian.Uint32(data[12:16]))
	if countSize+count*MetaSize != length {
		return nil, fmt.Errorf("%w: %d metas do not fit length %d", ErrInvalidList, count, length)
	}
	metas := make([]ExtraAccountMeta, count)
	off := headerSize + countSize
	for i := range metas {
		metas[i].Discriminator = data[off]
		copy(metas[i].AddressConfig[:], data[off+1:off+33])
		metas[i].IsSigner = data[off+33] == 1
		metas[i].IsWritable = data[off+34] == 1
		off += MetaSize
	}
	return metas, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
