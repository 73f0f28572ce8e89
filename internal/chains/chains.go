// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package chains enumerates the blockchains coldpath can request
// signatures for. Adding a chain means adding its constant here plus a
// derivation default and a signer backend; nothing else switches on it.
package chains

// Chain identifies a supported blockchain.
type Chain string

const (
	Ethereum Chain = "ethereum"
	Bitcoin  Chain = "bitcoin"
	Algorand Chain = "algorand"
)

// All returns the supported chains in display order.
func All() []Chain {
	return []Chain{Ethereum, Bitcoin, Algorand}
}

// Valid reports whether c is a chain this build knows about.
func (c Chain) Valid() bool {
	switch c {
	case Ethereum, Bitcoin, Algorand:
		return true
	}
	return false
}

// CoinType returns the SLIP-44 coin type used in BIP-44 derivation paths.
func (c Chain) CoinType() uint32 {
	switch c {
	case Ethereum:
		return 60
	case Bitcoin:
		return 0
	case Algorand:
		return 283
	default:
		return 0
	}
}

// DisplayName returns the human-readable chain name.
func (c Chain) DisplayName() string {
	switch c {
	case Ethereum:
		return "Ethereum"
	case Bitcoin:
		return "Bitcoin"
	case Algorand:
		return "Algorand"
	default:
		return string(c)
	}
}
