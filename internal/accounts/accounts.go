// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package accounts stores the durable link between a signer device and
// an address the user has verified on that device.
//
// An account is only ever created from an address that passed the
// explicit on-device verification gate; the store enforces identity
// uniqueness over (device type, chain, derivation path) and never
// silently mutates an existing record.
package accounts

import (
	"errors"

	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/derivation"
	"github.com/coldpath-wallet/coldpath/internal/device"
)

// Common store errors
var (
	// ErrAccountExists indicates an account with the same
	// (device type, chain, derivation path) identity already exists.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")
)

// Account is a reusable signer identity. A changed path or address
// always means a new account, never an update of this one.
type Account struct {
	ID         string          `json:"id"`
	DeviceType device.Type     `json:"device_type"`
	Chain      chains.Chain    `json:"chain"`
	Path       derivation.Path `json:"path"`
	Address    string          `json:"address"`
	PublicKey  []byte          `json:"public_key,omitempty"`
}

// Identity returns the uniqueness key for the account.
func (a Account) Identity() string {
	return a.DeviceType.Key() + "|" + string(a.Chain) + "|" + a.Path.String()
}

// Store abstracts account persistence.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Add appends a new account. Returns ErrAccountExists when an
	// account with the same identity is already stored.
	Add(account Account) error

	// Get returns the account with the given id.
	Get(id string) (Account, error)

	// ForChain returns all accounts for one chain.
	ForChain(chain chains.Chain) []Account

	// All returns every stored account.
	All() []Account

	// Remove deletes an account by id.
	Remove(id string) error
}
