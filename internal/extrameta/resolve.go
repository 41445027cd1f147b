package extrameta

import (
	"encoding/binary"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/pda"
)

// ErrUnresolvable is returned when a seed references data that is not
// available, such as an account index beyond the resolved list.
var ErrUnresolvable = errors.New("extra account meta cannot be resolved")

// AccountDataFunc loads the data of an account referenced by an
// account-data seed. A nil slice means the account does not exist.
type AccountDataFunc func(key sol.PublicKey) ([]byte, error)

// ExecuteData encodes the data of the interface execute instruction the
// token program passes to the hook.
func ExecuteData(amount uint64) []byte {
	data := make([]byte, 16)
	copy(data[:8], ExecuteDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:], amount)
	return data
}

// Resolve turns metas into concrete accounts. accounts holds the execute
// accounts in order: source, mint, destination, owner, validation. Each
// resolved meta is appended so later seeds can reference it by index.
func Resolve(metas []ExtraAccountMeta, hookProgram sol.PublicKey, accounts []sol.PublicKey, instructionData []byte, accountData AccountDataFunc) ([]*sol.AccountMeta, error) {
	keys := append([]sol.PublicKey(nil), accounts...)
	out := make([]*sol.AccountMeta, 0, len(metas))

	for i, m := range metas {
		var key sol.PublicKey
		switch {
		case m.Discriminator == DiscriminatorPubkey:
			key = sol.PublicKeyFromBytes(m.AddressConfig[:])
		case m.Discriminator == DiscriminatorHookPDA:
			k, err := derive(m, hookProgram, keys, instructionData, accountData)
			if err != nil {
				return nil, fmt.Errorf("meta %d: %w", i, err)
			}
			key = k
		case m.Discriminator >= DiscriminatorExternalPDA:
			idx := int(m.Discriminator - DiscriminatorExternalPDA)
			if idx >= len(keys) {
				return nil, fmt.Errorf("meta %d: %w: program index %d", i, ErrUnresolvable, idx)
			}
			k, err := derive(m, keys[idx], keys, instructionData, accountData)
			if err != nil {
				return nil, fmt.Errorf("meta %d: %w", i, err)
			}
			key = k
		default:
			return nil, fmt.Errorf("meta %d: %w: discriminator %d", i, ErrInvalidList, m.Discriminator)
		}
		keys = append(keys, key)
		out = append(out, sol.NewAccountMeta(key, m.IsWritable, m.IsSigner))
	}
	return out, nil
}

func derive(m ExtraAccountMeta, program sol.PublicKey, keys []sol.PublicKey, instructionData []byte, accountData AccountDataFunc) (sol.PublicKey, error) {
	seeds, err := UnpackSeeds(m.AddressConfig)
	if err != nil {
		return sol.PublicKey{}, err
	}
	raw := make([][]byte, 0, len(seeds))
	for _, s := range seeds {
		switch s.Kind {
		case SeedLiteral:
			raw = append(raw, s.Bytes)
		case SeedInstructionData:
			end := int(s.Index) + int(s.Length)
			if end > len(instructionData) {
				return sol.PublicKey{}, fmt.Errorf("%w: instruction data [%d:%d]", ErrUnresolvable, s.Index, end)
			}
			raw = append(raw, instructionData[s.Index:end])
		case SeedAccountKey:
			if int(s.Index) >= len(keys) {
				return sol.PublicKey{}, fmt.Errorf("%w: account index %d", ErrUnresolvable, s.Index)
			}
			k := keys[s.Index]
			raw = append(raw, k[:])
		case SeedAccountData:
			if int(s.Index) >= len(keys) {
				return sol.PublicKey{}, fmt.Errorf("%w: account index %d", ErrUnresolvable, s.Index)
			}
			if accountData == nil {
				return sol.PublicKey{}, fmt.Errorf("%w: no account data source", ErrUnresolvable)
			}
			data, err := accountData(keys[s.Index])
			if err != nil {
				return sol.PublicKey{}, err
			}
			end := int(s.DataIndex) + int(s.Length)
			if end > len(data) {
				return sol.PublicKey{}, fmt.Errorf("%w: account %d data [%d:%d]", ErrUnresolvable, s.Index, s.DataIndex, end)
			}
			raw = append(raw, data[s.DataIndex:end])
		}
	}
	key, _, err := pda.FindProgramAddress(raw, program)
	return key, err
}
