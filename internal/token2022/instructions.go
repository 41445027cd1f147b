package token2022

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/solana"
)

// Token instruction tags shared by the legacy and Token-2022 programs.
const (
	InstructionInitializeMint                = 0
	InstructionSetAuthority                  = 6
	InstructionMintTo                        = 7
	InstructionTransferChecked               = 12
	InstructionInitializeMintCloseAuthority  = 25
	InstructionInitializeNonTransferableMint = 32
	InstructionInitializePermanentDelegate   = 35
	InstructionTransferHookExtension         = 36
	InstructionMetadataPointerExtension      = 39

	// Sub-instruction of the pointer-style extensions.
	ExtensionInitialize = 0
)

// AuthorityType selects the authority changed by SetAuthority.
type AuthorityType uint8

const (
	AuthorityMintTokens AuthorityType = iota
	AuthorityFreezeAccount
	AuthorityAccountOwner
	AuthorityCloseAccount
)

// Associated token account program instructions.
const (
	ATACreate           = 0
	ATACreateIdempotent = 1
)

// Token metadata interface discriminators.
var (
	MetadataInitializeDiscriminator  = interfaceDiscriminator("spl_token_metadata_interface:initialize_account")
	MetadataUpdateFieldDiscriminator = interfaceDiscriminator("spl_token_metadata_interface:updating_field")
)

func interfaceDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// InitializeMetadataPointer points the mint at the account holding its
// metadata. For self-hosted metadata the address is the mint itself.
func InitializeMetadataPointer(mint, authority, metadata sol.PublicKey) sol.Instruction {
	data := make([]byte, 0, 2+64)
	data = append(data, InstructionMetadataPointerExtension, ExtensionInitialize)
	data = append(data, authority[:]...)
	data = append(data, metadata[:]...)
	return sol.NewInstruction(solana.Token2022ProgramID, sol.AccountMetaSlice{
		sol.NewAccountMeta(mint, true, false),
	}, data)
}

// InitializeTransferHook records the hook program invoked on every transfer.
func InitializeTransferHook(mint, authority, hookProgram sol.PublicKey) sol.Instruction {
	data := make([]byte, 0, 2+64)
	data = append(data, InstructionTransferHookExtension, ExtensionInitialize)
	data = append(data, authority[:]...)
	data = append(data, hookProgram[:]...)
	return sol.NewInstruction(solana.Token2022ProgramID, sol.AccountMetaSlice{
		sol.NewAccountMeta(mint, true, false),
	}, data)
}

// InitializeMintCloseAuthority allows closing the mint once supply is zero.
func InitializeMintCloseAuthority(mint sol.PublicKey, closeAuthority *sol.PublicKey) sol.Instruction {
	data := []byte{InstructionInitializeMintCloseAuthority}
	data = appendOptionalKey(data, closeAuthority)
	return sol.NewInstruction(solana.Token2022ProgramID, sol.AccountMetaSlice{
		sol.NewAccountMeta(mint, true, false),
	}, data)
}

// InitializePermanentDelegate sets a delegate with unlimited authority over
// every account of the mint.
func InitializePermanentDelegate(mint, delegate sol.PublicKey) sol.Instruction {
	data := append([]byte{InstructionInitializePermanentDelegate}, delegate[:]...)
	return sol.NewInstruction(solana.Token2022ProgramID, sol.AccountMetaSlice{
		sol.NewAccountMeta(mint, true, false),
	}, data)
}

// InitializeNonTransferable makes every account of the mint soulbound.
func InitializeNonTransferable(mint sol.PublicKey) sol.Instruction {
	return sol.NewInstruction(solana.Token2022ProgramID, sol.AccountMetaSlice{
		sol.NewAccountMeta(mint, true, false),
	}, []byte{InstructionInitializeNonTransferableMint})
}

// InitializeMint initializes the base mint. The rent sysvar is passed for
// compatibility with both token programs.
func InitializeMint(program, mint sol.PublicKey, decimals uint8, mintAuthority sol.PublicKey, freezeAuthority *sol.PublicKey) sol.Instruction {
	data := make([]byte, 0, 67)
	data = append(data, InstructionInitializeMint, decimals)
	data = append(data, mintAuthority[:]...)
	data = appendOptionalKey(data, freezeAuthority)
	return sol.NewInstruction(program, sol.AccountMetaSlice{
		sol.NewAccountMeta(mint, true, false),
		sol.NewAccountMeta(solana.SysvarRentID, false, false),
	}, data)
}

// InitializeTokenMetadata writes name, symbol and uri into the metadata
// account, reallocating it. Additional metadata is written by UpdateField.
func InitializeTokenMetadata(program, metadata, updateAuthority, mint, mintAuthority sol.PublicKey, name, symbol, uri string) sol.Instruction {
	buf := new(bytes.Buffer)
	buf.Write(MetadataInitializeDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteString(name)
	_ = enc.WriteString(symbol)
	_ = enc.WriteString(uri)
	return sol.NewInstruction(program, sol.AccountMetaSlice{
		sol.NewAccountMeta(metadata, true, false),
		sol.NewAccountMeta(updateAuthority, false, false),
		sol.NewAccountMeta(mint, false, false),
		sol.NewAccountMeta(mintAuthority, false, true),
	}, buf.Bytes())
}

// UpdateTokenMetadataField sets one metadata field, reallocating if needed.
func UpdateTokenMetadataField(program, metadata, updateAuthority sol.PublicKey, field Field, value string) sol.Instruction {
	buf := new(bytes.Buffer)
	buf.Write(MetadataUpdateFieldDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteUint8(uint8(field.Kind))
	if field.Kind == FieldKey {
		_ = enc.WriteString(field.Key)
	}
	_ = enc.WriteString(value)
	return sol.NewInstruction(program, sol.AccountMetaSlice{
		sol.NewAccountMeta(metadata, true, false),
		sol.NewAccountMeta(updateAuthority, false, true),
	}, buf.Bytes())
}

// MintTo mints amount base units to a token account.
func MintTo(program, mint, destination, authority sol.PublicKey, amount uint64) sol.Instruction {
	data := make([]byte, 9)
	data[0] = InstructionMintTo
	binary.LittleEndian.PutUint64(data[1:], amount)
	return sol.NewInstruction(program, sol.AccountMetaSlice{
		sol.NewAccountMeta(mint, true, false),
		sol.NewAccountMeta(destination, true, false),
		sol.NewAccountMeta(authority, false, true),
	}, data)
}

// SetAuthority changes or, with a nil newAuthority, removes an authority.
func SetAuthority(program, account, currentAuthority sol.PublicKey, kind AuthorityType, newAuthority *sol.PublicKey) sol.Instruction {
	data := []byte{InstructionSetAuthority, uint8(kind)}
	data = appendOptionalKey(data, newAuthority)
	return sol.NewInstruction(program, sol.AccountMetaSlice{
		sol.NewAccountMeta(account, true, false),
		sol.NewAccountMeta(currentAuthority, false, true),
	}, data)
}

// TransferChecked moves amount between token accounts of mint. Hook extra
// accounts are appended by the caller.
func TransferChecked(program, source, mint, destination, owner sol.PublicKey, amount uint64, decimals uint8) *sol.GenericInstruction {
	data := make([]byte, 10)
	data[0] = InstructionTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals
	return sol.NewInstruction(program, sol.AccountMetaSlice{
		sol.NewAccountMeta(source, true, false),
		sol.NewAccountMeta(mint, false, false),
		sol.NewAccountMeta(destination, true, false),
		sol.NewAccountMeta(owner, false, true),
	}, data)
}

// CreateAssociatedTokenAccount creates the canonical token account of owner.
// The idempotent form succeeds when the account already exists.
func CreateAssociatedTokenAccount(payer, ata, owner, mint, tokenProgram sol.PublicKey, idempotent bool) sol.Instruction {
	var data []byte
	if idempotent {
		data = []byte{ATACreateIdempotent}
	}
	return sol.NewInstruction(solana.AssociatedTokenProgramID, sol.AccountMetaSlice{
		sol.NewAccountMeta(payer, true, true),
		sol.NewAccountMeta(ata, true, false),
		sol.NewAccountMeta(owner, false, false),
		sol.NewAccountMeta(mint, false, false),
		sol.NewAccountMeta(solana.SystemProgramID, false, false),
		sol.NewAccountMeta(tokenProgram, false, false),
	}, data)
}

func appendOptionalKey(data []byte, key *sol.PublicKey) []byte {
	if key == nil {
		return append(data, append([]byte{0}, make([]byte, 32)...)...)
	}
	data = append(data, 1)
	return append(data, key[:]...)
}
