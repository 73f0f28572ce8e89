// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package derivation implements the BIP-32 derivation path value type.
//
// A path is an ordered list of child indices; hardened components carry
// the 0x80000000 offset so the slice can be fed directly to BIP-32 key
// derivation. The canonical string form uses apostrophes for hardened
// components: m/44'/60'/0'/0/0.
package derivation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coldpath-wallet/coldpath/internal/chains"
)

// HardenedOffset is added to an index to mark the component hardened.
const HardenedOffset = 0x80000000

// ErrInvalidPath indicates a derivation path string that cannot be parsed
// or does not fit the requested chain.
var ErrInvalidPath = errors.New("invalid derivation path")

// Path is a sequence of BIP-32 child indices, root first.
// Values >= HardenedOffset are hardened components.
type Path []uint32

// Parse converts a path string into its component indices.
// Both "m/44'/60'/0'/0/0" and the bare "44'/60'/0'/0/0" form are
// accepted; "h" and "H" are accepted as hardened markers alongside "'".
func Parse(s string) (Path, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	// Optional master prefix
	if strings.TrimSpace(parts[0]) == "m" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no components after master prefix", ErrInvalidPath)
	}

	path := make(Path, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty component", ErrInvalidPath)
		}

		var offset uint32
		if strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") || strings.HasSuffix(part, "H") {
			offset = HardenedOffset
			part = strings.TrimSpace(part[:len(part)-1])
		}

		index, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: component %q: %v", ErrInvalidPath, part, err)
		}
		if index >= HardenedOffset {
			return nil, fmt.Errorf("%w: component %d out of range", ErrInvalidPath, index)
		}

		path = append(path, uint32(index)+offset)
	}
	return path, nil
}

// MustParse parses a known-good path and panics on error.
// Intended for compile-time constants only.
func MustParse(s string) Path {
	path, err := Parse(s)
	if err != nil {
		panic("derivation: " + err.Error())
	}
	return path
}

// String returns the canonical string form of the path.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, component := range p {
		b.WriteString("/")
		if component >= HardenedOffset {
			b.WriteString(strconv.FormatUint(uint64(component-HardenedOffset), 10))
			b.WriteString("'")
		} else {
			b.WriteString(strconv.FormatUint(uint64(component), 10))
		}
	}
	return b.String()
}

// Equal reports structural equality.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i, component := range p {
		if other[i] != component {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// MarshalText implements encoding.TextMarshaler so paths serialize to
// their canonical string form inside JSON documents.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Default returns the first-account derivation path conventionally used
// for the given chain.
func Default(chain chains.Chain) Path {
	switch chain {
	case chains.Bitcoin:
		return Path{44 + HardenedOffset, 0 + HardenedOffset, 0 + HardenedOffset, 0, 0}
	case chains.Algorand:
		// Ledger's Algorand app requires fully hardened paths (ed25519)
		return Path{44 + HardenedOffset, 283 + HardenedOffset, 0 + HardenedOffset, 0 + HardenedOffset, 0 + HardenedOffset}
	default:
		return Path{44 + HardenedOffset, 60 + HardenedOffset, 0 + HardenedOffset, 0, 0}
	}
}

// Validate checks that the path is usable for the given chain: it must
// have the conventional five components, a hardened purpose, and a coin
// type matching the chain.
func Validate(p Path, chain chains.Chain) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if len(p) < 2 {
		return fmt.Errorf("%w: missing coin type component", ErrInvalidPath)
	}
	if p[0] < HardenedOffset {
		return fmt.Errorf("%w: purpose component must be hardened", ErrInvalidPath)
	}
	coin := p[1]
	if coin < HardenedOffset {
		return fmt.Errorf("%w: coin type component must be hardened", ErrInvalidPath)
	}
	if coin-HardenedOffset != chain.CoinType() {
		return fmt.Errorf("%w: coin type %d does not match %s (want %d)",
			ErrInvalidPath, coin-HardenedOffset, chain, chain.CoinType())
	}
	if len(p) > 10 {
		return fmt.Errorf("%w: %d components exceeds device limits", ErrInvalidPath, len(p))
	}
	return nil
}

// Child returns a copy of the path with one more component appended.
func (p Path) Child(index uint32, hardened bool) (Path, error) {
	if index >= HardenedOffset {
		return nil, fmt.Errorf("%w: child index %d out of range", ErrInvalidPath, index)
	}
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	if hardened {
		index += HardenedOffset
	}
	return append(child, index), nil
}
