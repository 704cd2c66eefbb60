package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/banky/relay/relayerr"
	"github.com/gagliardetto/solana-go"
	"github.com/maxatome/go-testdeep/td"
)

func writeKeypairFile(t *testing.T, dir string, key solana.PrivateKey) string {
	t.Helper()
	raw, err := json.Marshal([]byte(key))
	td.CmpNoError(t, err)

	pubkey := key.PublicKey().String()
	path := filepath.Join(dir, pubkey+".json")
	td.CmpNoError(t, os.WriteFile(path, raw, 0600))
	return pubkey
}

func TestLoadReadsMatchingKeypair(t *testing.T) {
	dir := t.TempDir()
	want, err := solana.NewRandomPrivateKey()
	td.CmpNoError(t, err)
	pubkey := writeKeypairFile(t, dir, want)

	got, err := Load(dir, pubkey)
	td.CmpNoError(t, err)
	td.Cmp(t, got, want)
}

func TestLoadRejectsMismatchedPublicKey(t *testing.T) {
	dir := t.TempDir()
	key, err := solana.NewRandomPrivateKey()
	td.CmpNoError(t, err)
	pubkey := writeKeypairFile(t, dir, key)

	other, err := solana.NewRandomPrivateKey()
	td.CmpNoError(t, err)
	path := filepath.Join(dir, pubkey+".json")
	raw, err := json.Marshal([]byte(other))
	td.CmpNoError(t, err)
	td.CmpNoError(t, os.WriteFile(path, raw, 0600))

	_, err = Load(dir, pubkey)
	td.Require(t).CmpError(err)
	td.Cmp(t, relayerr.Is(err, relayerr.KindInvalidData), true)
}

func TestLoadFromBase58RoundTrips(t *testing.T) {
	want, err := solana.NewRandomPrivateKey()
	td.CmpNoError(t, err)

	got, err := LoadFromBase58(want.String())
	td.CmpNoError(t, err)
	td.Cmp(t, got, want)
}

func TestLoadFromBase58RejectsBadLength(t *testing.T) {
	_, err := LoadFromBase58("abc")
	td.Require(t).CmpError(err)
	td.Cmp(t, relayerr.Is(err, relayerr.KindInvalidData), true)
}
