// Package keystore loads signing keys for the on-chain client from
// solana-keygen-format JSON keypair files, following the same
// filesystem-bound credential loading idiom as config's .env file.
package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banky/relay/relayerr"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Load reads the keypair file for pubkey out of dir. solana-keygen writes
// keypairs as a JSON array of 64 raw bytes: the first 32 are the seed, the
// last 32 are the public key.
func Load(dir, pubkey string) (solana.PrivateKey, error) {
	path := filepath.Join(dir, pubkey+".json")

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, relayerr.New(relayerr.KindInvalidData, fmt.Errorf("read keypair file: %w", err))
	}

	var bytes []byte
	if err := json.Unmarshal(raw, &bytes); err != nil {
		return nil, relayerr.New(relayerr.KindInvalidData, fmt.Errorf("decode keypair file: %w", err))
	}
	if len(bytes) != 64 {
		return nil, relayerr.Newf(relayerr.KindInvalidData, "keypair file %s: expected 64 bytes, got %d", path, len(bytes))
	}

	key := solana.PrivateKey(bytes)
	if key.PublicKey().String() != pubkey {
		return nil, relayerr.Newf(relayerr.KindInvalidData, "keypair file %s: public key %s does not match %s", path, key.PublicKey().String(), pubkey)
	}

	return key, nil
}

// LoadFromBase58 builds a PrivateKey directly from its base58 string form,
// used when a key arrives over config rather than a keystore file.
func LoadFromBase58(encoded string) (solana.PrivateKey, error) {
	bytes, err := base58.Decode(encoded)
	if err != nil {
		return nil, relayerr.New(relayerr.KindInvalidData, fmt.Errorf("decode base58 private key: %w", err))
	}
	if len(bytes) != 64 {
		return nil, relayerr.Newf(relayerr.KindInvalidData, "base58 private key: expected 64 bytes, got %d", len(bytes))
	}
	return solana.PrivateKey(bytes), nil
}
