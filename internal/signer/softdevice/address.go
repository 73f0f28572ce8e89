// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package softdevice

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	algotypes "github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/tyler-smith/go-bip32"
	"golang.org/x/crypto/sha3"

	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/derivation"
)

// keyPair holds the derived key material for one path.
type keyPair struct {
	priv   []byte
	pub    []byte
	scheme string
}

// deriveSecp256k1 walks the BIP-32 tree from the master key and
// returns the secp256k1 key pair at the path.
func deriveSecp256k1(seed []byte, path derivation.Path) (*keyPair, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	for _, component := range path {
		key, err = key.NewChildKey(component)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", path, err)
		}
	}

	priv, pub := btcec.PrivKeyFromBytes(key.Key)
	return &keyPair{
		priv:   priv.Serialize(),
		pub:    pub.SerializeUncompressed(),
		scheme: "secp256k1-ecdsa",
	}, nil
}

// deriveEd25519 performs SLIP-10 ed25519 derivation. Every component
// must be hardened; the curve has no normal child keys.
func deriveEd25519(seed []byte, path derivation.Path) (*keyPair, error) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chainCode := sum[:32], sum[32:]

	for _, component := range path {
		if component < derivation.HardenedOffset {
			return nil, fmt.Errorf("%w: ed25519 derivation requires hardened components", derivation.ErrInvalidPath)
		}
		var index [4]byte
		binary.BigEndian.PutUint32(index[:], component)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write([]byte{0x00})
		mac.Write(key)
		mac.Write(index[:])
		sum = mac.Sum(nil)
		key, chainCode = sum[:32], sum[32:]
	}

	private := ed25519.NewKeyFromSeed(key)
	return &keyPair{
		priv:   private,
		pub:    private.Public().(ed25519.PublicKey),
		scheme: "ed25519",
	}, nil
}

// deriveKeyPair selects the curve for the chain.
func deriveKeyPair(seed []byte, path derivation.Path, chain chains.Chain) (*keyPair, error) {
	if chain == chains.Algorand {
		return deriveEd25519(seed, path)
	}
	return deriveSecp256k1(seed, path)
}

// address encodes the chain-appropriate address for a key pair.
func address(kp *keyPair, chain chains.Chain) (string, error) {
	switch chain {
	case chains.Ethereum:
		// Last 20 bytes of Keccak256 over the uncompressed point,
		// EIP-55 checksum casing.
		hash := keccak256(kp.pub[1:])
		return checksumHex(hash[12:]), nil

	case chains.Bitcoin:
		// Legacy P2PKH: Base58Check(0x00 + Hash160(compressed pubkey)).
		pub, err := btcec.ParsePubKey(kp.pub)
		if err != nil {
			return "", fmt.Errorf("parse pubkey: %w", err)
		}
		return base58.CheckEncode(btcutil.Hash160(pub.SerializeCompressed()), 0x00), nil

	case chains.Algorand:
		var addr algotypes.Address
		copy(addr[:], kp.pub)
		return addr.String(), nil

	default:
		return "", fmt.Errorf("unsupported chain %q", chain)
	}
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// checksumHex renders a 20-byte ethereum address with EIP-55 mixed-case
// checksum encoding.
func checksumHex(addr []byte) string {
	lower := hex.EncodeToString(addr)
	hash := keccak256([]byte(lower))

	out := make([]byte, len(lower))
	for i, c := range []byte(lower) {
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}
