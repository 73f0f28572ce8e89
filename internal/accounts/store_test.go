// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package accounts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/derivation"
	"github.com/coldpath-wallet/coldpath/internal/device"
)

func testAccount(id string, chain chains.Chain, path string) Account {
	return Account{
		ID:         id,
		DeviceType: device.LedgerNanoX,
		Chain:      chain,
		Path:       derivation.MustParse(path),
		Address:    "0x" + id,
		PublicKey:  []byte{1, 2, 3},
	}
}

// Both Store implementations must satisfy the same contract.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	file, err := OpenFileStore(filepath.Join(t.TempDir(), "accounts.json"))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	return map[string]Store{
		"mem":  NewMemStore(),
		"file": file,
	}
}

func TestAddAndGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			account := testAccount("a1", chains.Ethereum, "m/44'/60'/0'/0/0")
			if err := store.Add(account); err != nil {
				t.Fatalf("Add: %v", err)
			}

			got, err := store.Get("a1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Address != account.Address || !got.Path.Equal(account.Path) {
				t.Errorf("Get = %+v, want %+v", got, account)
			}

			if _, err := store.Get("missing"); !errors.Is(err, ErrAccountNotFound) {
				t.Errorf("Get(missing) = %v, want ErrAccountNotFound", err)
			}
		})
	}
}

func TestDuplicateIdentityRejected(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Add(testAccount("a1", chains.Ethereum, "m/44'/60'/0'/0/0")); err != nil {
				t.Fatalf("Add: %v", err)
			}

			// Same (deviceType, chain, path) under a different id.
			dup := testAccount("a2", chains.Ethereum, "m/44'/60'/0'/0/0")
			if err := store.Add(dup); !errors.Is(err, ErrAccountExists) {
				t.Fatalf("duplicate Add = %v, want ErrAccountExists", err)
			}
			if got := len(store.All()); got != 1 {
				t.Errorf("store has %d accounts after duplicate, want 1", got)
			}

			// A different path is a different identity.
			other := testAccount("a3", chains.Ethereum, "m/44'/60'/0'/0/1")
			if err := store.Add(other); err != nil {
				t.Errorf("Add distinct path: %v", err)
			}
		})
	}
}

func TestForChain(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_ = store.Add(testAccount("e1", chains.Ethereum, "m/44'/60'/0'/0/0"))
			_ = store.Add(testAccount("e2", chains.Ethereum, "m/44'/60'/0'/0/1"))
			_ = store.Add(testAccount("b1", chains.Bitcoin, "m/44'/0'/0'/0/0"))

			if got := len(store.ForChain(chains.Ethereum)); got != 2 {
				t.Errorf("ForChain(ethereum) = %d accounts, want 2", got)
			}
			if got := len(store.ForChain(chains.Algorand)); got != 0 {
				t.Errorf("ForChain(algorand) = %d accounts, want 0", got)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			account := testAccount("a1", chains.Ethereum, "m/44'/60'/0'/0/0")
			_ = store.Add(account)

			if err := store.Remove("a1"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if err := store.Remove("a1"); !errors.Is(err, ErrAccountNotFound) {
				t.Errorf("second Remove = %v, want ErrAccountNotFound", err)
			}

			// Identity is freed after removal.
			if err := store.Add(account); err != nil {
				t.Errorf("re-Add after Remove: %v", err)
			}
		})
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")

	first, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	account := testAccount("a1", chains.Bitcoin, "m/44'/0'/0'/0/0")
	if err := first.Add(account); err != nil {
		t.Fatalf("Add: %v", err)
	}

	second, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := second.Get("a1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Address != account.Address || got.Chain != chains.Bitcoin {
		t.Errorf("reloaded account = %+v", got)
	}

	// Duplicate detection must survive the reload too.
	dup := testAccount("a9", chains.Bitcoin, "m/44'/0'/0'/0/0")
	if err := second.Add(dup); !errors.Is(err, ErrAccountExists) {
		t.Errorf("duplicate after reopen = %v, want ErrAccountExists", err)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := OpenFileStore(path); err == nil {
		t.Fatal("corrupt store opened without error")
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "nested", "accounts.json"))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	if got := len(store.All()); got != 0 {
		t.Errorf("new store has %d accounts", got)
	}
}
