package token2022

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"
)

// MetadataField is one additional key/value pair of token metadata.
type MetadataField struct {
	Key   string
	Value string
}

// TokenMetadata is the variable-length metadata entry stored inside the mint.
type TokenMetadata struct {
	UpdateAuthority    sol.PublicKey // zero key means immutable
	Mint               sol.PublicKey
	Name               string
	Symbol             string
	URI                string
	AdditionalMetadata []MetadataField
}

// Pack encodes the metadata in its on-ledger borsh layout.
func (m *TokenMetadata) Pack() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(m.UpdateAuthority[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(m.Mint[:], false); err != nil {
		return nil, err
	}
	for _, s := range []string{m.Name, m.Symbol, m.URI} {
		if err := enc.WriteString(s); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint32(uint32(len(m.AdditionalMetadata)), binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, f := range m.AdditionalMetadata {
		if err := enc.WriteString(f.Key); err != nil {
			return nil, err
		}
		if err := enc.WriteString(f.Value); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// PackedLen returns the encoded size without allocating.
func (m *TokenMetadata) PackedLen() int {
	n := 32 + 32 + 4 + len(m.Name) + 4 + len(m.Symbol) + 4 + len(m.URI) + 4
	for _, f := range m.AdditionalMetadata {
		n += 4 + len(f.Key) + 4 + len(f.Value)
	}
	return n
}

// Set updates one field, appending unknown additional keys.
func (m *TokenMetadata) Set(field Field, value string) {
	switch field.Kind {
	case FieldName:
		m.Name = value
	case FieldSymbol:
		m.Symbol = value
	case FieldURI:
		m.URI = value
	default:
		for i := range m.AdditionalMetadata {
			if m.AdditionalMetadata[i].Key == field.Key {
				m.AdditionalMetadata[i].Value = value
				return
			}
		}
		m.AdditionalMetadata = append(m.AdditionalMetadata, MetadataField{Key: field.Key, Value: value})
	}
}

var ErrMetadataTruncated = errors.New("token metadata truncated")

// ErrInvalidMetadataField is returned for additional metadata that would not
// land as its own entry: empty, repeated or naming a core field.
var ErrInvalidMetadataField = errors.New("invalid additional metadata field")

// ValidateAdditionalMetadata checks that every field appends exactly one
// entry when applied with Set, so PackedLen matches the stored metadata.
func ValidateAdditionalMetadata(fields []MetadataField) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Key == "" {
			return fmt.Errorf("%w: entry %d has an empty key", ErrInvalidMetadataField, i)
		}
		if FieldFor(f.Key).Kind != FieldKey {
			return fmt.Errorf("%w: %q is a reserved key", ErrInvalidMetadataField, f.Key)
		}
		if seen[f.Key] {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidMetadataField, f.Key)
		}
		seen[f.Key] = true
	}
	return nil
}

// UnpackMetadata decodes a packed metadata entry.
func UnpackMetadata(data []byte) (*TokenMetadata, error) {
	if len(data) < 64 {
		return nil, ErrMetadataTruncated
	}
	dec := bin.NewBorshDecoder(data)
	m := &TokenMetadata{}

	ua, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("%w: update authority", ErrMetadataTruncated)
	}
	copy(m.UpdateAuthority[:], ua)
	mint, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("%w: mint", ErrMetadataTruncated)
	}
	copy(m.Mint[:], mint)

	if m.Name, err = dec.ReadString(); err != nil {
		return nil, fmt.Errorf("%w: name", ErrMetadataTruncated)
	}
	if m.Symbol, err = dec.ReadString(); err != nil {
		return nil, fmt.Errorf("%w: symbol", ErrMetadataTruncated)
	}
	if m.URI, err = dec.ReadString(); err != nil {
		return nil, fmt.Errorf("%w: uri", ErrMetadataTruncated)
	}
	count, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("%w: additional metadata", ErrMetadataTruncated)
	}
	for i := uint32(0); i < count; i++ {
		var f MetadataField
		if f.Key, err = dec.ReadString(); err != nil {
			return nil, fmt.Errorf("%w: key %d", ErrMetadataTruncated, i)
		}
		if f.Value, err = dec.ReadString(); err != nil {
			return nil, fmt.Errorf("%w: value %d", ErrMetadataTruncated, i)
		}
		m.AdditionalMetadata = append(m.AdditionalMetadata, f)
	}
	return m, nil
}

// FieldKind selects which metadata field an update targets.
type FieldKind uint8

const (
	FieldName FieldKind = iota
	FieldSymbol
	FieldURI
	FieldKey
)

// Field is the target of a metadata update.
type Field struct {
	Kind FieldKind
	Key  string // only for FieldKey
}

// FieldFor maps well-known names to their dedicated field and anything else
// to an additional-metadata key.
func FieldFor(key string) Field {
	switch key {
	case "name":
		return Field{Kind: FieldName}
	case "symbol":
		return Field{Kind: FieldSymbol}
	case "uri":
		return Field{Kind: FieldURI}
	default:
		return Field{Kind: FieldKey, Key: key}
	}
}
