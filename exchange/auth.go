package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/banky/relay/config"
)

// signRequest computes the venue's REST signature: HMAC-SHA256 over
// "<timestampMs><method><path><body>" keyed by the account secret, matching
// the exchange's documented signing scheme.
func signRequest(cfg config.FtxAuthenticationConfig, timestampMs int64, method, path string, body []byte) string {
	payload := fmt.Sprintf("%d%s%s%s", timestampMs, method, path, body)
	mac := hmac.New(sha256.New, []byte(cfg.Secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// authHeaders builds the REST auth headers for a signed request.
func authHeaders(cfg config.FtxAuthenticationConfig, method, path string, body []byte) map[string]string {
	ts := time.Now().UnixMilli()
	headers := map[string]string{
		"FTX-KEY":  cfg.Key,
		"FTX-SIGN": signRequest(cfg, ts, method, path, body),
		"FTX-TS":   fmt.Sprintf("%d", ts),
	}
	if cfg.Subaccount != "" {
		headers["FTX-SUBACCOUNT"] = cfg.Subaccount
	}
	return headers
}

// wsLoginArgs builds the "login" op args per the venue's WS auth scheme:
// the signed payload is "<timestampMs>websocket_login" rather than a REST
// method+path.
func wsLoginArgs(cfg config.FtxAuthenticationConfig) map[string]any {
	ts := time.Now().UnixMilli()
	payload := fmt.Sprintf("%dwebsocket_login", ts)
	mac := hmac.New(sha256.New, []byte(cfg.Secret))
	mac.Write([]byte(payload))
	sign := hex.EncodeToString(mac.Sum(nil))

	args := map[string]any{
		"key":  cfg.Key,
		"sign": sign,
		"time": ts,
	}
	if cfg.Subaccount != "" {
		args["subaccount"] = cfg.Subaccount
	}
	return args
}
