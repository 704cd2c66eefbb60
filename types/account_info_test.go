package types

import (
	"encoding/json"
	"testing"

	"github.com/banky/relay/relayerr"
	"github.com/maxatome/go-testdeep/td"
)

func TestAccountInfoDecodesBase64Pair(t *testing.T) {
	raw := []byte(`{"executable":false,"lamports":100,"owner":"11111111111111111111111111111111","data":["aGVsbG8=","base64"]}`)
	var info AccountInfo
	err := json.Unmarshal(raw, &info)
	td.CmpNoError(t, err)
	td.Cmp(t, info.Data, []byte("hello"))
	td.Cmp(t, info.Lamports, uint64(100))
}

func TestAccountInfoDecodesBase58String(t *testing.T) {
	raw := []byte(`{"executable":false,"lamports":1,"owner":"11111111111111111111111111111111","data":"2NEpo7TZRRrLZSi2U"}`)
	var info AccountInfo
	err := json.Unmarshal(raw, &info)
	td.CmpNoError(t, err)
	td.Cmp(t, info.Data, []byte("Hello World!"))
}

func TestAccountInfoRejectsUnknownDataShape(t *testing.T) {
	raw := []byte(`{"executable":false,"lamports":1,"owner":"x","data":123}`)
	var info AccountInfo
	err := json.Unmarshal(raw, &info)
	td.Require(t).CmpError(err)
	td.Cmp(t, relayerr.Is(err, relayerr.KindInvalidData), true)
}

func TestAccountInfoRejectsUnknownEncodingTag(t *testing.T) {
	raw := []byte(`{"executable":false,"lamports":1,"owner":"x","data":["abc","utf8"]}`)
	var info AccountInfo
	err := json.Unmarshal(raw, &info)
	td.Require(t).CmpError(err)
	td.Cmp(t, relayerr.Is(err, relayerr.KindInvalidData), true)
}
