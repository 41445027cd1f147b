package stub

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/extrameta"
	"transfer-hook-lab/internal/pda"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

func executeToken(inv *invocation) error {
	if len(inv.data) == 0 {
		return reject(solana.ReasonInvalidData, "empty token instruction")
	}
	if len(inv.data) >= 8 && inv.program == solana.Token2022ProgramID {
		var disc [8]byte
		copy(disc[:], inv.data[:8])
		switch disc {
		case token2022.MetadataInitializeDiscriminator:
			return initializeMetadata(inv)
		case token2022.MetadataUpdateFieldDiscriminator:
			return updateMetadataField(inv)
		}
	}

	switch inv.data[0] {
	case token2022.InstructionInitializeMint:
		return initializeMint(inv)
	case token2022.InstructionMintTo:
		return mintTo(inv)
	case token2022.InstructionSetAuthority:
		return setAuthority(inv)
	case token2022.InstructionTransferChecked:
		return transferChecked(inv)
	}

	if inv.program != solana.Token2022ProgramID {
		return reject(solana.ReasonInvalidData, "unsupported token instruction %d", inv.data[0])
	}
	switch inv.data[0] {
	case token2022.InstructionTransferHookExtension, token2022.InstructionMetadataPointerExtension:
		if len(inv.data) != 2+64 || inv.data[1] != token2022.ExtensionInitialize {
			return reject(solana.ReasonInvalidData, "malformed pointer extension instruction")
		}
		t := token2022.ExtensionTransferHook
		if inv.data[0] == token2022.InstructionMetadataPointerExtension {
			t = token2022.ExtensionMetadataPointer
		}
		return initializeMintExtension(inv, t, inv.data[2:])
	case token2022.InstructionInitializeMintCloseAuthority:
		if len(inv.data) != 34 {
			return reject(solana.ReasonInvalidData, "malformed close authority instruction")
		}
		return initializeMintExtension(inv, token2022.ExtensionMintCloseAuthority, inv.data[2:34])
	case token2022.InstructionInitializePermanentDelegate:
		if len(inv.data) != 33 {
			return reject(solana.ReasonInvalidData, "malformed permanent delegate instruction")
		}
		return initializeMintExtension(inv, token2022.ExtensionPermanentDelegate, inv.data[1:33])
	case token2022.InstructionInitializeNonTransferableMint:
		return initializeMintExtension(inv, token2022.ExtensionNonTransferable, nil)
	default:
		return reject(solana.ReasonInvalidData, "unsupported token instruction %d", inv.data[0])
	}
}

// initializeMintExtension writes an extension entry into an uninitialized
// mint buffer, in the first free slot.
func initializeMintExtension(inv *invocation, t token2022.ExtensionType, value []byte) error {
	m, err := inv.writable(0)
	if err != nil {
		return err
	}
	a, err := inv.owned(m.key, inv.program)
	if err != nil {
		return err
	}
	data := a.Data
	if len(data) <= token2022.AccountSize {
		return reject(solana.ReasonInvalidAccountData, "mint buffer of %d bytes has no room for %s", len(data), t)
	}
	if data[45] == 1 {
		return reject(solana.ReasonInvalidAccountData, "mint already initialized, cannot add %s", t)
	}
	switch token2022.AccountType(data[token2022.AccountSize]) {
	case token2022.AccountTypeUninitialized, token2022.AccountTypeMint:
	default:
		return reject(solana.ReasonInvalidAccountData, "buffer is not a mint")
	}
	data[token2022.AccountSize] = byte(token2022.AccountTypeMint)

	off := token2022.AccountSize + token2022.AccountTypeSize
	for off+token2022.TLVHeaderSize <= len(data) {
		existing := token2022.ExtensionType(binary.LittleEndian.Uint16(data[off:]))
		if existing == token2022.ExtensionUninitialized {
			break
		}
		if existing == t {
			return reject(solana.ReasonInvalidAccountData, "extension %s already initialized", t)
		}
		off += token2022.TLVHeaderSize + int(binary.LittleEndian.Uint16(data[off+token2022.TLVTypeSize:]))
	}
	if off+token2022.TLVHeaderSize+len(value) > len(data) {
		return reject(solana.ReasonInvalidAccountData, "no space left for %s", t)
	}
	binary.LittleEndian.PutUint16(data[off:], uint16(t))
	binary.LittleEndian.PutUint16(data[off+token2022.TLVTypeSize:], uint16(len(value)))
	copy(data[off+token2022.TLVHeaderSize:], value)
	inv.log("Instruction: Initialize%s", t)
	return nil
}

// initializeMint requires the buffer to be exactly the size of the
// extensions declared so far.
func initializeMint(inv *invocation) error {
	if len(inv.data) != 67 {
		return reject(solana.ReasonInvalidData, "initialize mint data is %d bytes", len(inv.data))
	}
	m, err := inv.writable(0)
	if err != nil {
		return err
	}
	a, err := inv.owned(m.key, inv.program)
	if err != nil {
		return err
	}
	if len(a.Data) < token2022.MintSize {
		return reject(solana.ReasonInvalidAccountData, "mint buffer is %d bytes", len(a.Data))
	}
	if a.Data[45] == 1 {
		return reject(solana.ReasonInvalidAccountData, "mint already initialized")
	}

	if len(a.Data) != token2022.MintSize {
		if inv.program != solana.Token2022ProgramID {
			return reject(solana.ReasonInvalidAccountData, "legacy mint must be %d bytes", token2022.MintSize)
		}
		if token2022.AccountType(a.Data[token2022.AccountSize]) != token2022.AccountTypeMint {
			return reject(solana.ReasonInvalidAccountData, "mint buffer of %d bytes declares no extensions", len(a.Data))
		}
		entries, err := token2022.ParseTLV(a.Data[token2022.AccountSize+token2022.AccountTypeSize:])
		if err != nil {
			return reject(solana.ReasonInvalidAccountData, "%v", err)
		}
		types := make(token2022.ExtensionSet, 0, len(entries))
		for _, e := range entries {
			types = append(types, e.Type)
		}
		want, err := token2022.MintLen(types)
		if err != nil {
			return reject(solana.ReasonInvalidAccountData, "%v", err)
		}
		if want != len(a.Data) {
			return reject(solana.ReasonInvalidAccountData, "mint buffer is %d bytes, declared extensions need %d", len(a.Data), want)
		}
	}

	authority := sol.PublicKeyFromBytes(inv.data[2:34])
	mint := token2022.Mint{
		MintAuthority: &authority,
		Decimals:      inv.data[1],
		IsInitialized: true,
	}
	if inv.data[34] == 1 {
		freeze := sol.PublicKeyFromBytes(inv.data[35:67])
		mint.FreezeAuthority = &freeze
	}
	mint.EncodeBase(a.Data)
	inv.log("Instruction: InitializeMint")
	return nil
}

// loadMint returns the initialized mint at key owned by program.
func loadMint(inv *invocation, key, program sol.PublicKey) (*Account, *token2022.Mint, error) {
	a, err := inv.owned(key, program)
	if err != nil {
		return nil, nil, err
	}
	m, err := token2022.DecodeMint(a.Data)
	if err != nil || !m.IsInitialized {
		return nil, nil, reject(solana.ReasonInvalidAccountData, "%s is not an initialized mint", key)
	}
	return a, m, nil
}

func loadTokenAccount(inv *invocation, key, program sol.PublicKey) (*Account, *token2022.TokenAccount, error) {
	a, err := inv.owned(key, program)
	if err != nil {
		return nil, nil, err
	}
	t, err := token2022.DecodeTokenAccount(a.Data)
	if err != nil || t.State == 0 {
		return nil, nil, reject(solana.ReasonInvalidAccountData, "%s is not an initialized token account", key)
	}
	return a, t, nil
}

func initializeMetadata(inv *invocation) error {
	dec := bin.NewBorshDecoder(inv.data[8:])
	name, err := dec.ReadString()
	if err != nil {
		return reject(solana.ReasonInvalidData, "malformed metadata name")
	}
	symbol, err := dec.ReadString()
	if err != nil {
		return reject(solana.ReasonInvalidData, "malformed metadata symbol")
	}
	uri, err := dec.ReadString()
	if err != nil {
		return reject(solana.ReasonInvalidData, "malformed metadata uri")
	}
	if dec.Remaining() != 0 {
		return reject(solana.ReasonInvalidData, "trailing metadata bytes")
	}

	metadata, err := inv.writable(0)
	if err != nil {
		return err
	}
	updateAuthority, err := inv.key(1)
	if err != nil {
		return err
	}
	mintKey, err := inv.key(2)
	if err != nil {
		return err
	}
	mintAuthority, err := inv.signer(3)
	if err != nil {
		return err
	}
	if metadata.key != mintKey.key {
		return reject(solana.ReasonInvalidAccountData, "metadata must be stored on the mint")
	}

	a, m, err := loadMint(inv, mintKey.key, inv.program)
	if err != nil {
		return err
	}
	if _, addr, err := m.MetadataPointer(); err != nil || addr != mintKey.key {
		return reject(solana.ReasonInvalidAccountData, "mint metadata pointer does not reference the mint")
	}
	if m.MintAuthority == nil || *m.MintAuthority != mintAuthority.key {
		return reject(solana.ReasonInvalidAccountData, "incorrect mint authority")
	}
	if _, ok := m.Extension(token2022.ExtensionTokenMetadata); ok {
		return reject(solana.ReasonInvalidAccountData, "token metadata already initialized")
	}

	md := &token2022.TokenMetadata{
		UpdateAuthority: updateAuthority.key,
		Mint:            mintKey.key,
		Name:            name,
		Symbol:          symbol,
		URI:             uri,
	}
	packed, err := md.Pack()
	if err != nil {
		return reject(solana.ReasonInvalidData, "%v", err)
	}
	a.Data = rewriteMintTLV(a.Data, m, packed)
	inv.log("Instruction: TokenMetadataInstruction: Initialize")
	return nil
}

func updateMetadataField(inv *invocation) error {
	dec := bin.NewBorshDecoder(inv.data[8:])
	kind, err := dec.ReadUint8()
	if err != nil || kind > uint8(token2022.FieldKey) {
		return reject(solana.ReasonInvalidData, "malformed metadata field")
	}
	field := token2022.Field{Kind: token2022.FieldKind(kind)}
	if field.Kind == token2022.FieldKey {
		if field.Key, err = dec.ReadString(); err != nil {
			return reject(solana.ReasonInvalidData, "malformed metadata key")
		}
	}
	value, err := dec.ReadString()
	if err != nil {
		return reject(solana.ReasonInvalidData, "malformed metadata value")
	}

	metadata, err := inv.writable(0)
	if err != nil {
		return err
	}
	authority, err := inv.signer(1)
	if err != nil {
		return err
	}
	a, m, err := loadMint(inv, metadata.key, inv.program)
	if err != nil {
		return err
	}
	md, err := m.TokenMetadata()
	if err != nil {
		return reject(solana.ReasonInvalidAccountData, "%v", err)
	}
	if md.UpdateAuthority != authority.key {
		return reject(solana.ReasonInvalidAccountData, "incorrect update authority")
	}
	md.Set(field, value)
	packed, err := md.Pack()
	if err != nil {
		return reject(solana.ReasonInvalidData, "%v", err)
	}
	a.Data = rewriteMintTLV(a.Data, m, packed)
	inv.log("Instruction: TokenMetadataInstruction: UpdateField")
	return nil
}

// rewriteMintTLV re-lays the extension area with the metadata entry set to
// packed. The account grows or shrinks to fit.
func rewriteMintTLV(data []byte, m *token2022.Mint, packed []byte) []byte {
	out := make([]byte, 0, len(data)+token2022.TLVHeaderSize+len(packed))
	out = append(out, data[:token2022.AccountSize+token2022.AccountTypeSize]...)
	written := false
	for _, e := range m.Extensions {
		if e.Type == token2022.ExtensionTokenMetadata {
			out = token2022.AppendTLV(out, e.Type, packed)
			written = true
			continue
		}
		out = token2022.AppendTLV(out, e.Type, e.Value)
	}
	if !written {
		out = token2022.AppendTLV(out, token2022.ExtensionTokenMetadata, packed)
	}
	return out
}

func mintTo(inv *invocation) error {
	if len(inv.data) != 9 {
		return reject(solana.ReasonInvalidData, "mint to data is %d bytes", len(inv.data))
	}
	amount := binary.LittleEndian.Uint64(inv.data[1:9])
	mintKey, err := inv.writable(0)
	if err != nil {
		return err
	}
	dest, err := inv.writable(1)
	if err != nil {
		return err
	}
	authority, err := inv.signer(2)
	if err != nil {
		return err
	}
	return mintSupply(inv, inv.program, mintKey.key, dest.key, authority.key, amount)
}

// mintSupply mints amount to dest once authority has been authenticated by
// the caller.
func mintSupply(inv *invocation, program, mintKey, destKey, authority sol.PublicKey, amount uint64) error {
	a, m, err := loadMint(inv, mintKey, program)
	if err != nil {
		return err
	}
	if m.MintAuthority == nil {
		return reject(solana.ReasonInvalidAccountData, "mint %s has a fixed supply", mintKey)
	}
	if *m.MintAuthority != authority {
		return reject(solana.ReasonInvalidAccountData, "incorrect mint authority for %s", mintKey)
	}
	d, acct, err := loadTokenAccount(inv, destKey, program)
	if err != nil {
		return err
	}
	if acct.Mint != mintKey {
		return reject(solana.ReasonInvalidAccountData, "token account %s belongs to mint %s", destKey, acct.Mint)
	}
	if m.Supply+amount < m.Supply {
		return reject(solana.ReasonInvalidData, "supply overflow")
	}
	m.Supply += amount
	m.EncodeBase(a.Data)
	token2022.SetTokenAccountAmount(d.Data, acct.Amount+amount)
	inv.log("Instruction: MintTo")
	return nil
}

func setAuthority(inv *invocation) error {
	if len(inv.data) != 35 {
		return reject(solana.ReasonInvalidData, "set authority data is %d bytes", len(inv.data))
	}
	if token2022.AuthorityType(inv.data[1]) != token2022.AuthorityMintTokens {
		return reject(solana.ReasonInvalidData, "unsupported authority type %d", inv.data[1])
	}
	target, err := inv.writable(0)
	if err != nil {
		return err
	}
	current, err := inv.signer(1)
	if err != nil {
		return err
	}
	a, m, err := loadMint(inv, target.key, inv.program)
	if err != nil {
		return err
	}
	if m.MintAuthority == nil || *m.MintAuthority != current.key {
		return reject(solana.ReasonInvalidAccountData, "incorrect mint authority")
	}
	m.MintAuthority = nil
	if inv.data[2] == 1 {
		next := sol.PublicKeyFromBytes(inv.data[3:35])
		m.MintAuthority = &next
	}
	m.EncodeBase(a.Data)
	inv.log("Instruction: SetAuthority")
	return nil
}

func transferChecked(inv *invocation) error {
	if len(inv.data) != 10 {
		return reject(solana.ReasonInvalidData, "transfer data is %d bytes", len(inv.data))
	}
	amount := binary.LittleEndian.Uint64(inv.data[1:9])
	decimals := inv.data[9]

	source, err := inv.writable(0)
	if err != nil {
		return err
	}
	mintKey, err := inv.key(1)
	if err != nil {
		return err
	}
	dest, err := inv.writable(2)
	if err != nil {
		return err
	}
	owner, err := inv.signer(3)
	if err != nil {
		return err
	}

	_, m, err := loadMint(inv, mintKey.key, inv.program)
	if err != nil {
		return err
	}
	if m.Decimals != decimals {
		return reject(solana.ReasonInvalidData, "mint decimals %d, instruction says %d", m.Decimals, decimals)
	}
	if _, ok := m.Extension(token2022.ExtensionNonTransferable); ok {
		return reject(solana.ReasonInvalidAccountData, "mint is non-transferable")
	}
	src, srcAcct, err := loadTokenAccount(inv, source.key, inv.program)
	if err != nil {
		return err
	}
	dst, dstAcct, err := loadTokenAccount(inv, dest.key, inv.program)
	if err != nil {
		return err
	}
	if srcAcct.Mint != mintKey.key || dstAcct.Mint != mintKey.key {
		return reject(solana.ReasonInvalidAccountData, "token accounts do not belong to mint %s", mintKey.key)
	}
	if srcAcct.Owner != owner.key {
		return reject(solana.ReasonInvalidAccountData, "owner does not match source account")
	}
	if srcAcct.Amount < amount {
		return reject(solana.ReasonInsufficientFunds, "source holds %d, transfer of %d", srcAcct.Amount, amount)
	}
	if source.key != dest.key {
		token2022.SetTokenAccountAmount(src.Data, srcAcct.Amount-amount)
		token2022.SetTokenAccountAmount(dst.Data, dstAcct.Amount+amount)
	}
	inv.log("Instruction: TransferChecked")

	if inv.program != solana.Token2022ProgramID {
		return nil
	}
	_, hookProgram, err := m.TransferHook()
	if err != nil || hookProgram.IsZero() {
		return nil
	}
	return invokeTransferHook(inv, hookProgram, []sol.PublicKey{source.key, mintKey.key, dest.key, owner.key}, amount)
}

// invokeTransferHook resolves the hook's extra accounts from its validation
// account and requires every one of them on the transfer instruction.
func invokeTransferHook(inv *invocation, hookProgram sol.PublicKey, execute []sol.PublicKey, amount uint64) error {
	if _, ok := inv.has(hookProgram); !ok {
		return reject(solana.ReasonMissingAccount, "transfer hook program %s not provided", hookProgram)
	}
	list, _, err := pda.ExtraAccountMetaList(execute[1], hookProgram)
	if err != nil {
		return reject(solana.ReasonInvalidSeeds, "%v", err)
	}
	if _, ok := inv.has(list); !ok {
		return reject(solana.ReasonMissingAccount, "extra account meta list %s not provided", list)
	}
	listAcct := inv.account(list)
	if listAcct == nil || listAcct.Owner != hookProgram {
		return reject(solana.ReasonInvalidAccountData, "extra account meta list %s not initialized", list)
	}
	metas, err := extrameta.Unpack(listAcct.Data)
	if err != nil {
		return reject(solana.ReasonInvalidAccountData, "%v", err)
	}
	resolved, err := extrameta.Resolve(metas, hookProgram, append(execute, list), extrameta.ExecuteData(amount),
		func(key sol.PublicKey) ([]byte, error) {
			if a := inv.account(key); a != nil {
				return a.Data, nil
			}
			return nil, nil
		})
	if err != nil {
		return reject(solana.ReasonMissingAccount, "%v", err)
	}
	keys := make([]sol.PublicKey, 0, len(resolved))
	for _, r := range resolved {
		m, ok := inv.has(r.PublicKey)
		if !ok {
			return reject(solana.ReasonMissingAccount, "extra account %s not provided", r.PublicKey)
		}
		if r.IsWritable && !m.writable {
			return reject(reasonReadonlyModified, "extra account %s must be writable", r.PublicKey)
		}
		keys = append(keys, r.PublicKey)
	}
	if hookProgram != inv.ledger.hookProgram {
		return reject(solana.ReasonIncorrectProgramID, "transfer hook program %s not deployed", hookProgram)
	}
	inv.logs = append(inv.logs, "Program "+hookProgram.String()+" invoke [2]")
	return hookExecute(inv, hookProgram, keys)
}
