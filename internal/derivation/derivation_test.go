// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package derivation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/coldpath-wallet/coldpath/internal/chains"
)

func TestParseCanonical(t *testing.T) {
	tests := []struct {
		input string
		want  Path
	}{
		{"m/44'/60'/0'/0/0", Path{44 + HardenedOffset, 60 + HardenedOffset, 0 + HardenedOffset, 0, 0}},
		{"44'/60'/0'/0/0", Path{44 + HardenedOffset, 60 + HardenedOffset, 0 + HardenedOffset, 0, 0}},
		{"m/84'/0'/0'/0/1", Path{84 + HardenedOffset, 0 + HardenedOffset, 0 + HardenedOffset, 0, 1}},
		{"m/44h/283h/0h/0h/0h", Path{44 + HardenedOffset, 283 + HardenedOffset, 0 + HardenedOffset, 0 + HardenedOffset, 0 + HardenedOffset}},
		{"m/0", Path{0}},
		{"m/2147483647'", Path{2147483647 + HardenedOffset}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	inputs := []string{
		"",
		"m",
		"m/",
		"m//0",
		"m/44'/x",
		"m/-1",
		"m/2147483648", // >= hardened offset
		"m/44'/60'/0'/0/4294967296",
	}

	for _, input := range inputs {
		if _, err := Parse(input); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidPath", input, err)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	paths := []string{
		"m/44'/60'/0'/0/0",
		"m/84'/0'/0'/0/0",
		"m/44'/283'/0'/0'/0'",
		"m/0/1/2",
	}

	for _, s := range paths {
		path, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := path.String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
}

func TestJSONEmbedding(t *testing.T) {
	type record struct {
		Path Path `json:"path"`
	}

	original := record{Path: MustParse("m/44'/60'/0'/0/5")}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"path":"m/44'/60'/0'/0/5"}` {
		t.Errorf("unexpected JSON form: %s", data)
	}

	var decoded record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Path.Equal(original.Path) {
		t.Errorf("round trip mismatch: %v != %v", decoded.Path, original.Path)
	}
}

func TestValidatePerChain(t *testing.T) {
	for _, chain := range chains.All() {
		if err := Validate(Default(chain), chain); err != nil {
			t.Errorf("default path for %s rejected: %v", chain, err)
		}
	}

	// Ethereum path offered for bitcoin must be rejected
	err := Validate(MustParse("m/44'/60'/0'/0/0"), chains.Bitcoin)
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("cross-chain path accepted: %v", err)
	}

	// Unhardened coin type
	err = Validate(MustParse("m/44'/60/0'/0/0"), chains.Ethereum)
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("unhardened coin type accepted: %v", err)
	}
}

func TestChild(t *testing.T) {
	base := MustParse("m/44'/60'/0'/0")
	child, err := base.Child(7, false)
	if err != nil {
		t.Fatalf("Child: %v", err)
	}
	if child.String() != "m/44'/60'/0'/0/7" {
		t.Errorf("child = %s", child)
	}
	if len(base) != 4 {
		t.Errorf("base mutated by Child: %s", base)
	}

	hardened, err := base.Child(7, true)
	if err != nil {
		t.Fatalf("Child hardened: %v", err)
	}
	if hardened.String() != "m/44'/60'/0'/0/7'" {
		t.Errorf("hardened child = %s", hardened)
	}

	if _, err := base.Child(HardenedOffset, false); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("out-of-range child accepted: %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := MustParse("m/44'/60'/0'/0/0")
	clone := original.Clone()
	clone[4] = 9
	if original[4] != 0 {
		t.Error("Clone shares backing array with original")
	}
}
