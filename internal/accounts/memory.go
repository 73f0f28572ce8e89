// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package accounts

import (
	"sync"

	"github.com/coldpath-wallet/coldpath/internal/chains"
)

// MemStore is an in-memory Store for tests and short-lived sessions.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[string]Account // keyed by id
	identity map[string]string  // identity -> id
}

// Compile-time interface check
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[string]Account),
		identity: make(map[string]string),
	}
}

func (s *MemStore) Add(account Account) error {
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
	return nil
}

func (s *MemStore) Get(id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (s *MemStore) ForChain(chain chains.Chain) []Account {
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

func (s *MemStore) All() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, account)
	}
	return out
}

func (s *MemStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(s.accounts, id)
	delete(s.identity, account.Identity())
	return nil
}
