// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package signer defines the capability interface for external signer
// devices.
//
// A Signer wraps vendor protocol and cryptographic logic behind two
// operations: derivation-path-scoped address derivation and signing.
// Implementations are registered per vendor; orchestrators resolve
// them through the registry and never touch vendor specifics.
package signer

import (
	"context"

	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/derivation"
	"github.com/coldpath-wallet/coldpath/internal/session"
)

// AddressResult is the device-attested output of address derivation.
// It is ephemeral: it becomes authoritative only after the user has
// explicitly confirmed the address against the device's own display.
type AddressResult struct {
	Address   string
	PublicKey []byte
	Path      derivation.Path
}

// SignatureResult carries the signature bytes plus the metadata a
// caller needs to assemble a fully signed transaction. Orchestrators
// produce it once per signing session and never cache it.
type SignatureResult struct {
	// Signature is the raw signature bytes.
	Signature []byte

	// PublicKey is the key the device signed with, when reported.
	PublicKey []byte

	// Scheme names the signature scheme ("secp256k1-ecdsa", "ed25519").
	Scheme string
}

// Signer is the capability coldpath requires from a device backend.
type Signer interface {
	// DeriveAddress asks the device to compute the address for the
	// path. When verify is true the device renders the address on its
	// own screen during the call; the returned result still requires
	// the explicit user confirmation step before it may be persisted.
	DeriveAddress(ctx context.Context, sess *session.Session, path derivation.Path, chain chains.Chain, verify bool) (AddressResult, error)

	// Sign asks the device to sign the transaction with the key at
	// path. Blocks until the device approves, rejects, or the context
	// is cancelled.
	Sign(ctx context.Context, sess *session.Session, path derivation.Path, tx Transaction, chain chains.Chain) (SignatureResult, error)
}
