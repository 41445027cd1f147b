package token2022

import (
	"encoding/binary"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
)

// AccountType is the byte following the 165-byte base of extended accounts.
type AccountType uint8

const (
	AccountTypeUninitialized AccountType = 0
	AccountTypeMint          AccountType = 1
	AccountTypeAccount       AccountType = 2
)

var (
	ErrInvalidMintData    = errors.New("invalid mint data")
	ErrInvalidAccountData = errors.New("invalid token account data")
	ErrExtensionNotFound  = errors.New("extension not found")
)

// TLVEntry is one extension record.
type TLVEntry struct {
	Type  ExtensionType
	Value []byte
}

// Mint is the decoded mint state, base fields plus any extensions.
type Mint struct {
	MintAuthority   *sol.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *sol.PublicKey
	Extensions      []TLVEntry
}

// DecodeMint decodes a legacy or Token-2022 mint.
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMintData, len(data))
	}
	m := &Mint{
		MintAuthority:   readOptionalKey(data[0:36]),
		Supply:          binary.LittleEndian.Uint64(data[36:44]),
		Decimals:        data[44],
		IsInitialized:   data[45] == 1,
		FreezeAuthority: readOptionalKey(data[46:82]),
	}
	if len(data) == MintSize {
		return m, nil
	}
	if len(data) <= AccountSize || AccountType(data[AccountSize]) != AccountTypeMint {
		return nil, fmt.Errorf("%w: missing mint account type", ErrInvalidMintData)
	}
	entries, err := ParseTLV(data[AccountSize+AccountTypeSize:])
	if err != nil {
		return nil, err
	}
	m.Extensions = entries
	return m, nil
}

// EncodeBase writes the 82-byte base mint into dst.
func (m *Mint) EncodeBase(dst []byte) {
	writeOptionalKey(dst[0:36], m.MintAuthority)
	binary.LittleEndian.PutUint64(dst[36:44], m.Supply)
	dst[44] = m.Decimals
	if m.IsInitialized {
		dst[45] = 1
	} else {
		dst[45] = 0
	}
	writeOptionalKey(dst[46:82], m.FreezeAuthority)
}

// Extension returns the raw value of extension t.
func (m *Mint) Extension(t ExtensionType) ([]byte, bool) {
	for _, e := range m.Extensions {
		if e.Type == t {
			return e.Value, true
		}
	}
	return nil, false
}

// ExtensionTypes lists the extension types present, in layout order.
func (m *Mint) ExtensionTypes() ExtensionSet {
	out := make(ExtensionSet, 0, len(m.Extensions))
	for _, e := range m.Extensions {
		out = append(out, e.Type)
	}
	return out
}

// TransferHook returns the hook program configured on the mint.
func (m *Mint) TransferHook() (authority, program sol.PublicKey, err error) {
	v, ok := m.Extension(ExtensionTransferHook)
	if !ok || len(v) != 64 {
		return sol.PublicKey{}, sol.PublicKey{}, fmt.Errorf("transfer hook: %w", ErrExtensionNotFound)
	}
	return sol.PublicKeyFromBytes(v[:32]), sol.PublicKeyFromBytes(v[32:]), nil
}

// MetadataPointer returns where the mint says its metadata lives.
func (m *Mint) MetadataPointer() (authority, address sol.PublicKey, err error) {
	v, ok := m.Extension(ExtensionMetadataPointer)
	if !ok || len(v) != 64 {
		return sol.PublicKey{}, sol.PublicKey{}, fmt.Errorf("metadata pointer: %w", ErrExtensionNotFound)
	}
	return sol.PublicKeyFromBytes(v[:32]), sol.PublicKeyFromBytes(v[32:]), nil
}

// TokenMetadata decodes the embedded metadata entry.
func (m *Mint) TokenMetadata() (*TokenMetadata, error) {
	v, ok := m.Extension(ExtensionTokenMetadata)
	if !ok {
		return nil, fmt.Errorf("token metadata: %w", ErrExtensionNotFound)
	}
	return UnpackMetadata(v)
}

// ParseTLV reads extension entries until the data ends or an uninitialized
// type tag is found.
func ParseTLV(data []byte) ([]TLVEntry, error) {
	var entries []TLVEntry
	off := 0
	for off+TLVHeaderSize <= len(data) {
		t := ExtensionType(binary.LittleEndian.Uint16(data[off:]))
		if t == ExtensionUninitialized {
			break
		}
		l := int(binary.LittleEndian.Uint16(data[off+TLVTypeSize:]))
		start := off + TLVHeaderSize
		if start+l > len(data) {
			return nil, fmt.Errorf("%w: extension %s overruns data", ErrInvalidMintData, t)
		}
		entries = append(entries, TLVEntry{Type: t, Value: data[start : start+l]})
		off = start + l
	}
	return entries, nil
}

// AppendTLV encodes one entry.
func AppendTLV(dst []byte, t ExtensionType, value []byte) []byte {
	var hdr [TLVHeaderSize]byte
	binary.LittleEndian.PutUint16(hdr[0:], uint16(t))
	binary.LittleEndian.PutUint16(hdr[2:], uint16(len(value)))
	dst = append(dst, hdr[:]...)
	return append(dst, value...)
}

// TokenAccount is a decoded token account. Only the fields the workflow
// reads are exposed.
type TokenAccount struct {
	Mint   sol.PublicKey
	Owner  sol.PublicKey
	Amount uint64
	State  uint8
}

// DecodeTokenAccount decodes a legacy or Token-2022 token account.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < AccountSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidAccountData, len(data))
	}
	return &TokenAccount{
		Mint:   sol.PublicKeyFromBytes(data[0:32]),
		Owner:  sol.PublicKeyFromBytes(data[32:64]),
		Amount: binary.LittleEndian.Uint64(data[64:72]),
		State:  data[108],
	}, nil
}

// EncodeTokenAccount lays out an initialized token account of size bytes,
// writing the account type and the listed zero-valued account extensions
// when size exceeds the base layout.
func EncodeTokenAccount(acct *TokenAccount, size int, exts ExtensionSet) []byte {
	data := make([]byte, AccountSize, size)
	copy(data[0:32], acct.Mint[:])
	copy(data[32:64], acct.Owner[:])
	binary.LittleEndian.PutUint64(data[64:72], acct.Amount)
	data[108] = acct.State
	if size == AccountSize {
		return data
	}
	data = append(data, byte(AccountTypeAccount))
	for _, t := range exts {
		l, _ := t.TypeLen()
		data = AppendTLV(data, t, make([]byte, l))
	}
	for len(data) < size {
		data = append(data, 0)
	}
	return data
}

// SetTokenAccountAmount rewrites the amount field in place.
func SetTokenAccountAmount(data []byte, amount uint64) {
	binary.LittleEndian.PutUint64(data[64:72], amount)
}

func readOptionalKey(b []byte) *sol.PublicKey {
	if binary.LittleEndian.Uint32(b[0:4]) == 0 {
		return nil
	}
	k := sol.PublicKeyFromBytes(b[4:36])
	return &k
}

func writeOptionalKey(b []byte, k *sol.PublicKey) {
	if k == nil {
		for i := range b[:36] {
			b[i] = 0
		}
		return
	}
	binary.LittleEndian.PutUint32(b[0:4], 1)
	copy(b[4:36], k[:])
}
