package token2022

import (
	"fmt"
)

// Byte sizes of the base token layouts.
const (
	MintSize        = 82
	AccountSize     = 165
	MultisigSize    = 355
	AccountTypeSize = 1
	TLVTypeSize     = 2
	TLVLengthSize   = 2
	TLVHeaderSize   = TLVTypeSize + TLVLengthSize
)

// Default rent parameters of mainnet, devnet and the local validator.
const (
	AccountStorageOverhead     = 128
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
)

// RentParams determines the rent-exempt minimum of an account.
type RentParams struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// DefaultRent returns the cluster default rent parameters.
func DefaultRent() RentParams {
	return RentParams{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance returns the lamports needed for an account of dataLen bytes
// to be rent exempt.
func (r RentParams) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(AccountStorageOverhead + dataLen)
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// MintLen returns the size of a mint carrying the given fixed-size extensions.
// A mint without extensions is the plain 82-byte layout.
func MintLen(set ExtensionSet) (int, error) {
	if len(set) == 0 {
		return MintSize, nil
	}
	return extendedLen(set, true)
}

// AccountLen returns the size of a token account carrying the given
// account-side extensions.
func AccountLen(set ExtensionSet) (int, error) {
	if len(set) == 0 {
		return AccountSize, nil
	}
	return extendedLen(set, false)
}

func extendedLen(set ExtensionSet, mint bool) (int, error) {
	size := AccountSize + AccountTypeSize
	for _, t := range NewExtensionSet(set...) {
		info, ok := extensions[t]
		if !ok || info.mint != mint {
			return 0, fmt.Errorf("%w: %s", ErrUnsupportedExtension, t)
		}
		size += TLVHeaderSize + info.typeLen
	}
	// A multisig-sized buffer would be ambiguous, so the layout is padded.
	if size == MultisigSize {
		size += TLVTypeSize
	}
	return size, nil
}

// Layout is the allocation plan of an extension-augmented mint.
type Layout struct {
	// MintSpace is what create-account allocates: the mint with its declared
	// extensions. Initialize-mint requires this exact size.
	MintSpace int
	// AccountLength is the final size once token metadata is written.
	AccountLength int
	// RentLamports covers AccountLength so the metadata reallocation stays
	// rent exempt.
	RentLamports uint64
}

// ComputeLayout plans a mint for the extension set and the packed metadata
// length. packedMetadataLength 0 means the mint carries no metadata entry.
func ComputeLayout(set ExtensionSet, packedMetadataLength int, rent RentParams) (Layout, error) {
	if packedMetadataLength < 0 {
		return Layout{}, fmt.Errorf("negative metadata length %d", packedMetadataLength)
	}
	space, err := MintLen(set)
	if err != nil {
		return Layout{}, err
	}
	total := space
	if packedMetadataLength > 0 {
		total += TLVHeaderSize + packedMetadataLength
	}
	return Layout{
		MintSpace:     space,
		AccountLength: total,
		RentLamports:  rent.MinimumBalance(total),
	}, nil
}
