// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/util"
)

// FileStore persists accounts as a single JSON document.
//
// Writes go through a temp file + rename so a crash mid-write never
// leaves a truncated store. The file holds no key material, only
// public data, but is still written 0600 like the rest of the data
// directory.
type FileStore struct {
	path string

	mu       sync.RWMutex
	accounts map[string]Account
	identity map[string]string
}

// Compile-time interface check
var _ Store = (*FileStore)(nil)

// storeDocument is the on-disk shape.
type storeDocument struct {
	Version  int       `json:"version"`
	Accounts []Account `json:"accounts"`
}

const storeVersion = 1

// OpenFileStore loads (or initializes) the account store at path.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		accounts: make(map[string]Account),
		identity: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil // empty store
	}
	if err != nil {
		return fmt.Errorf("read account store: %w", err)
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse account store: %w", err)
	}

	accounts := make(map[string]Account, len(doc.Accounts))
	identity := make(map[string]string, len(doc.Accounts))
	for _, account := range doc.Accounts {
		accounts[account.ID] = account
		identity[account.Identity()] = account.ID
	}

	s.mu.Lock()
	s.accounts = accounts
	s.identity = identity
	s.mu.Unlock()
	return nil
}

// Reload re-reads the backing file, replacing the in-memory set.
// Called by the watcher when another process touches the store.
func (s *FileStore) Reload() error {
	return s.load()
}

// persistLocked writes the current set to disk. Caller holds s.mu.
func (s *FileStore) persistLocked() error {
	doc := storeDocument{Version: storeVersion}
	for _, account := range s.accounts {
		doc.Accounts = append(doc.Accounts, account)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write account store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace account store: %w", err)
	}
	return nil
}

func (s *FileStore) Add(account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := account.Identity()
	if _, exists := s.identity[key]; exists {
		return ErrAccountExists
	}
	if _, exists := s.accounts[account.ID]; exists {
		return ErrAccountExists
	}

	s.accounts[account.ID] = account
	s.identity[key] = account.ID
	if err := s.persistLocked(); err != nil {
		// Roll back the in-memory insert so memory matches disk.
		delete(s.accounts, account.ID)
		delete(s.identity, key)
		return err
	}
	util.Debug("account store: account added", "id", account.ID, "chain", account.Chain)
	return nil
}

func (s *FileStore) Get(id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (s *FileStore) ForChain(chain chains.Chain) []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, account := range s.accounts {
		if account.Chain == chain {
			out = append(out, account)
		}
	}
	return out
}

func (s *FileStore) All() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, account)
	}
	return out
}

func (s *FileStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(s.accounts, id)
	delete(s.identity, account.Identity())
	if err := s.persistLocked(); err != nil {
		s.accounts[id] = account
		s.identity[account.Identity()] = id
		return err
	}
	return nil
}
