package types

import (
	"encoding/binary"
	"fmt"

	"github.com/banky/relay/constants"
	"github.com/banky/relay/relayerr"
	"github.com/gagliardetto/solana-go"
)

// TokenMintAccount is the decoded SPL mint account layout: a COption-tagged
// mint authority, the token's total supply and decimal precision, the
// initialized flag, and a COption-tagged freeze authority.
type TokenMintAccount struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

const (
	tokenMintAuthorityTagOffset    = 0
	tokenMintAuthorityOffset       = 1
	tokenMintSupplyOffset          = 36
	tokenMintDecimalsOffset        = 44
	tokenMintIsInitializedOffset   = 45
	tokenMintFreezeTagOffset       = 46
	tokenMintFreezeAuthorityOffset = 50
)

// DecodeTokenMintAccount decodes data as a TokenMintAccount. data must be
// exactly constants.TokenMintAccountDataLen bytes; any other length
// returns a relayerr.KindInvalidData error.
func DecodeTokenMintAccount(data []byte) (TokenMintAccount, error) {
	if len(data) != constants.TokenMintAccountDataLen {
		return TokenMintAccount{}, relayerr.Newf(relayerr.KindInvalidData, "token mint account: want %d bytes, got %d", constants.TokenMintAccountDataLen, len(data))
	}

	var mint TokenMintAccount

	if data[tokenMintAuthorityTagOffset] != 0 {
		var authority solana.PublicKey
		copy(authority[:], data[tokenMintAuthorityOffset:tokenMintAuthorityOffset+len(authority)])
		mint.MintAuthority = &authority
	}

	mint.Supply = binary.LittleEndian.Uint64(data[tokenMintSupplyOffset : tokenMintSupplyOffset+8])

	mint.Decimals = data[tokenMintDecimalsOffset]
	mint.IsInitialized = data[tokenMintIsInitializedOffset] != 0

	if data[tokenMintFreezeTagOffset] != 0 {
		var freeze solana.PublicKey
		copy(freeze[:], data[tokenMintFreezeAuthorityOffset:tokenMintFreezeAuthorityOffset+len(freeze)])
		mint.FreezeAuthority = &freeze
	}

	return mint, nil
}

func init() {
	// Guard against the offsets above silently drifting out of sync with
	// the fixed-width layout they decode.
	var pub solana.PublicKey
	if tokenMintFreezeAuthorityOffset+len(pub) != constants.TokenMintAccountDataLen {
		panic(fmt.Sprintf("types: token mint layout no longer sums to %d bytes", constants.TokenMintAccountDataLen))
	}
}
