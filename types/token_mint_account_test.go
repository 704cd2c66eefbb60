package types

import (
	"testing"

	"github.com/banky/relay/constants"
	"github.com/banky/relay/relayerr"
	"github.com/gagliardetto/solana-go"
	"github.com/maxatome/go-testdeep/td"
)

func buildMintData(mintAuthority, freezeAuthority *solana.PublicKey, supply uint64, decimals uint8, initialized bool) []byte {
	data := make([]byte, constants.TokenMintAccountDataLen)
	if mintAuthority != nil {
		data[tokenMintAuthorityTagOffset] = 1
		copy(data[tokenMintAuthorityOffset:], (*mintAuthority)[:])
	}
	for i := 0; i < 8; i++ {
		data[tokenMintSupplyOffset+i] = byte(supply >> (8 * i))
	}
	data[tokenMintDecimalsOffset] = decimals
	if initialized {
		data[tokenMintIsInitializedOffset] = 1
	}
	if freezeAuthority != nil {
		data[tokenMintFreezeTagOffset] = 1
		copy(data[tokenMintFreezeAuthorityOffset:], (*freezeAuthority)[:])
	}
	return data
}

func TestDecodeTokenMintAccountWithBothAuthorities(t *testing.T) {
	mintAuthority := solana.NewWallet().PublicKey()
	freezeAuthority := solana.NewWallet().PublicKey()
	data := buildMintData(&mintAuthority, &freezeAuthority, 1_000_000, 6, true)

	mint, err := DecodeTokenMintAccount(data)
	td.CmpNoError(t, err)
	td.Require(t).Cmp(*mint.MintAuthority, mintAuthority)
	td.Require(t).Cmp(*mint.FreezeAuthority, freezeAuthority)
	td.Cmp(t, mint.Supply, uint64(1_000_000))
	td.Cmp(t, mint.Decimals, uint8(6))
	td.Cmp(t, mint.IsInitialized, true)
}

func TestDecodeTokenMintAccountWithoutAuthorities(t *testing.T) {
	data := buildMintData(nil, nil, 0, 9, false)

	mint, err := DecodeTokenMintAccount(data)
	td.CmpNoError(t, err)
	td.Cmp(t, mint.MintAuthority, (*solana.PublicKey)(nil))
	td.Cmp(t, mint.FreezeAuthority, (*solana.PublicKey)(nil))
	td.Cmp(t, mint.IsInitialized, false)
}

func TestDecodeTokenMintAccountRejectsWrongLength(t *testing.T) {
	_, err := DecodeTokenMintAccount(make([]byte, 10))
	td.Require(t).CmpError(err)
	td.Cmp(t, relayerr.Is(err, relayerr.KindInvalidData), true)
}
