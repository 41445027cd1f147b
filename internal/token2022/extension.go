// Package token2022 models Token-2022 mint layouts: extension sizing, rent,
// token metadata packing, account state decoding and instruction encoding.
package token2022

import (
	"errors"
	"fmt"
	"strings"
)

// ExtensionType is the TLV type tag of a Token-2022 extension.
type ExtensionType uint16

// Extension type tags as stored on the ledger.
const (
	ExtensionUninitialized            ExtensionType = 0
	ExtensionTransferFeeConfig        ExtensionType = 1
	ExtensionTransferFeeAmount        ExtensionType = 2
	ExtensionMintCloseAuthority       ExtensionType = 3
	ExtensionConfidentialTransferMint ExtensionType = 4
	ExtensionDefaultAccountState      ExtensionType = 6
	ExtensionImmutableOwner           ExtensionType = 7
	ExtensionMemoTransfer             ExtensionType = 8
	ExtensionNonTransferable          ExtensionType = 9
	ExtensionInterestBearingConfig    ExtensionType = 10
	ExtensionCpiGuard                 ExtensionType = 11
	ExtensionPermanentDelegate        ExtensionType = 12
	ExtensionNonTransferableAccount   ExtensionType = 13
	ExtensionTransferHook             ExtensionType = 14
	ExtensionTransferHookAccount      ExtensionType = 15
	ExtensionMetadataPointer          ExtensionType = 18
	ExtensionTokenMetadata            ExtensionType = 19
	ExtensionGroupPointer             ExtensionType = 20
	ExtensionGroupMemberPointer       ExtensionType = 22
)

var (
	ErrUnsupportedExtension = errors.New("unsupported extension")
	ErrUnknownExtension     = errors.New("unknown extension name")
)

type extensionInfo struct {
	name    string
	typeLen int
	mint    bool // lives on mints (as opposed to token accounts)
}

var extensions = map[ExtensionType]extensionInfo{
	ExtensionTransferFeeConfig:        {"transfer-fee-config", 108, true},
	ExtensionTransferFeeAmount:        {"transfer-fee-amount", 8, false},
	ExtensionMintCloseAuthority:       {"mint-close-authority", 32, true},
	ExtensionConfidentialTransferMint: {"confidential-transfer-mint", 65, true},
	ExtensionDefaultAccountState:      {"default-account-state", 1, true},
	ExtensionImmutableOwner:           {"immutable-owner", 0, false},
	ExtensionMemoTransfer:             {"memo-transfer", 1, false},
	ExtensionNonTransferable:          {"non-transferable", 0, true},
	ExtensionInterestBearingConfig:    {"interest-bearing-config", 52, true},
	ExtensionCpiGuard:                 {"cpi-guard", 1, false},
	ExtensionPermanentDelegate:        {"permanent-delegate", 32, true},
	ExtensionNonTransferableAccount:   {"non-transferable-account", 0, false},
	ExtensionTransferHook:             {"transfer-hook", 64, true},
	ExtensionTransferHookAccount:      {"transfer-hook-account", 1, false},
	ExtensionMetadataPointer:          {"metadata-pointer", 64, true},
	ExtensionGroupPointer:             {"group-pointer", 64, true},
	ExtensionGroupMemberPointer:       {"group-member-pointer", 64, true},
}

func (t ExtensionType) String() string {
	if info, ok := extensions[t]; ok {
		return info.name
	}
	if t == ExtensionTokenMetadata {
		return "token-metadata"
	}
	return fmt.Sprintf("extension(%d)", uint16(t))
}

// TypeLen returns the fixed value length of the extension. Variable-length
// extensions (token metadata) report false.
func (t ExtensionType) TypeLen() (int, bool) {
	info, ok := extensions[t]
	return info.typeLen, ok
}

// IsMintExtension reports whether t is a fixed-size mint-side extension.
func (t ExtensionType) IsMintExtension() bool {
	info, ok := extensions[t]
	return ok && info.mint
}

// ParseExtension parses a kebab-case extension name such as "transfer-hook".
func ParseExtension(name string) (ExtensionType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for t, info := range extensions {
		if info.name == n {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
}

// ExtensionSet is an ordered list of distinct extensions. The order is the
// order in which the extensions are initialized and laid out.
type ExtensionSet []ExtensionType

// NewExtensionSet builds a set, dropping repeats while keeping first-seen order.
func NewExtensionSet(types ...ExtensionType) ExtensionSet {
	seen := make(map[ExtensionType]bool, len(types))
	set := make(ExtensionSet, 0, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		set = append(set, t)
	}
	return set
}

// ParseExtensionSet parses names in order.
func ParseExtensionSet(names []string) (ExtensionSet, error) {
	types := make([]ExtensionType, 0, len(names))
	for _, n := range names {
		t, err := ParseExtension(n)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return NewExtensionSet(types...), nil
}

// Contains reports whether t is in the set.
func (s ExtensionSet) Contains(t ExtensionType) bool {
	for _, e := range s {
		if e == t {
			return true
		}
	}
	return false
}

// Names returns the extension names in set order.
func (s ExtensionSet) Names() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = t.String()
	}
	return out
}
