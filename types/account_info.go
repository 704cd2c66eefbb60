package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/banky/relay/relayerr"
	"github.com/mr-tron/base58"
)

// AccountInfo is the chain node's account representation. The wire
// encoding of Data is either a base58 string or a two-element
// [text, "base64"] array; the shape must be inspected to decide which.
type AccountInfo struct {
	Executable bool
	Lamports   uint64
	Owner      string
	Data       []byte
}

type accountInfoWire struct {
	Executable bool            `json:"executable"`
	Lamports   uint64          `json:"lamports"`
	Owner      string          `json:"owner"`
	Data       json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes an AccountInfo, inspecting the Data node's JSON
// shape to pick base58-string vs [text,"base64"]-array decoding.
func (a *AccountInfo) UnmarshalJSON(b []byte) error {
	var wire accountInfoWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return fmt.Errorf("unmarshal account info: %w", err)
	}

	data, err := decodeAccountData(wire.Data)
	if err != nil {
		return err
	}

	a.Executable = wire.Executable
	a.Lamports = wire.Lamports
	a.Owner = wire.Owner
	a.Data = data
	return nil
}

func decodeAccountData(raw json.RawMessage) ([]byte, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		decoded, err := base58.Decode(asString)
		if err != nil {
			return nil, relayerr.New(relayerr.KindInvalidData, fmt.Errorf("decode base58 account data: %w", err))
		}
		return decoded, nil
	}

	var asPair [2]string
	if err := json.Unmarshal(raw, &asPair); err == nil {
		if asPair[1] != "base64" {
			return nil, relayerr.Newf(relayerr.KindInvalidData, "account data encoding %q", asPair[1])
		}
		decoded, err := base64.StdEncoding.DecodeString(asPair[0])
		if err != nil {
			return nil, relayerr.New(relayerr.KindInvalidData, fmt.Errorf("decode base64 account data: %w", err))
		}
		return decoded, nil
	}

	return nil, relayerr.Newf(relayerr.KindInvalidData, "account data has unrecognized wire shape")
}
