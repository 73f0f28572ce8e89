// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package signer

import (
	"github.com/coldpath-wallet/coldpath/internal/device"
	"github.com/coldpath-wallet/coldpath/internal/util"
)

// Registry maps device vendors to signer backends.
//
// Unlike a process-global registry, each Registry instance is owned by
// whatever composes the orchestrators, so tests can build isolated
// registries with mock backends.
type Registry struct {
	providers *util.StringRegistry[Signer]
}

// NewRegistry creates an empty signer registry.
func NewRegistry() *Registry {
	return &Registry{providers: util.NewStringRegistry[Signer]()}
}

// Register adds a backend for a vendor.
// Panics if the vendor already has a backend; registration happens at
// composition time and a duplicate is a programming error.
func (r *Registry) Register(vendor device.Vendor, s Signer) {
	if !r.providers.Set(string(vendor), s) {
		panic("duplicate signer registration for vendor: " + string(vendor))
	}
}

// For resolves the backend for a device type.
func (r *Registry) For(t device.Type) (Signer, error) {
	provider, ok := r.providers.Get(string(t.Vendor))
	if !ok {
		return nil, ErrNoProvider
	}
	return provider, nil
}

// Vendors returns the registered vendors, sorted.
func (r *Registry) Vendors() []string {
	return r.providers.Keys()
}
