package extrameta

import "fmt"

// SeedKind tags a packed seed.
type SeedKind uint8

const (
	SeedUninitialized   SeedKind = 0
	SeedLiteral         SeedKind = 1
	SeedInstructionData SeedKind = 2
	SeedAccountKey      SeedKind = 3
	SeedAccountData     SeedKind = 4
)

// Seed is one component of a PDA seed configuration.
type Seed struct {
	Kind SeedKind

	Bytes []byte // literal

	Index  uint8 // instruction data offset, or account index
	Length uint8 // instruction/account data length

	DataIndex uint8 // account data offset
}

// Literal returns a constant seed.
func Literal(b []byte) Seed { return Seed{Kind: SeedLiteral, Bytes: b} }

// InstructionData returns a seed sliced from the execute instruction data.
func InstructionData(index, length uint8) Seed {
	return Seed{Kind: SeedInstructionData, Index: index, Length: length}
}

// AccountKey returns a seed equal to the key of the account at index.
func AccountKey(index uint8) Seed { return Seed{Kind: SeedAccountKey, Index: index} }

// AccountData returns a seed sliced from the data of the account at index.
func AccountData(accountIndex, dataIndex, length uint8) Seed {
	return Seed{Kind: SeedAccountData, Index: accountIndex, DataIndex: dataIndex, Length: length}
}

// PackSeeds encodes seeds into the 32-byte address config.
func PackSeeds(seeds []Seed) ([addressConfigSize]byte, error) {
	var out [addressConfigSize]byte
	buf := make([]byte, 0, addressConfigSize)
	for _, s := range seeds {
		switch s.Kind {
		case SeedLiteral:
			if len(s.Bytes) > 255 {
				return out, fmt.Errorf("literal seed of %d bytes", len(s.Bytes))
			}
			buf = append(buf, byte(SeedLiteral), byte(len(s.Bytes)))
			buf = append(buf, s.Bytes...)
		case SeedInstructionData:
			buf = append(buf, byte(SeedInstructionData), s.Index, s.Length)
		case SeedAccountKey:
			buf = append(buf, byte(SeedAccountKey), s.Index)
		case SeedAccountData:
			buf = append(buf, byte(SeedAccountData), s.Index, s.DataIndex, s.Length)
		default:
			return out, fmt.Errorf("unknown seed kind %d", s.Kind)
		}
	}
	if len(buf) > addressConfigSize {
		return out, fmt.Errorf("%w: %d bytes", ErrSeedConfigTooBig, len(buf))
	}
	copy(out[:], buf)
	return out, nil
}

// UnpackSeeds decodes an address config, stopping at the first
// uninitialized tag.
func UnpackSeeds(cfg [addressConfigSize]byte) ([]Seed, error) {
	var seeds []Seed
	i := 0
	for i < len(cfg) {
		kind := SeedKind(cfg[i])
		switch kind {
		case SeedUninitialized:
			return seeds, nil
		case SeedLiteral:
			if i+2 > len(cfg) {
				return nil, fmt.Errorf("%w: truncated literal seed", ErrInvalidList)
			}
			n := int(cfg[i+1])
			if i+2+n > len(cfg) {
				return nil, fmt.Errorf("%w: literal seed overruns config", ErrInvalidList)
			}
			seeds = append(seeds, Literal(append([]byte(nil), cfg[i+2:i+2+n]...)))
			i += 2 + n
		case SeedInstructionData:
			if i+3 > len(cfg) {
				return nil, fmt.Errorf("%w: truncated instruction data seed", ErrInvalidList)
			}
			seeds = append(seeds, InstructionData(cfg[i+1], cfg[i+2]))
			i += 3
		case SeedAccountKey:
			if i+2 > len(cfg) {
				return nil, fmt.Errorf("%w: truncated account key seed", ErrInvalidList)
			}
			seeds = append(seeds, AccountKey(cfg[i+1]))
			i += 2
		case SeedAccountData:
			if i+4 > len(cfg) {
				return nil, fmt.Errorf("%w: truncated account data seed", ErrInvalidList)
			}
			seeds = append(seeds, AccountData(cfg[i+1], cfg[i+2], cfg[i+3]))
			i += 4
		default:
			return nil, fmt.Errorf("%w: unknown seed kind %d", ErrInvalidList, kind)
		}
	}
	return seeds, nil
}
