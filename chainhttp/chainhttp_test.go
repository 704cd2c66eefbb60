package chainhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/rest"
	"github.com/banky/relay/types"
	"github.com/maxatome/go-testdeep/td"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Client{
		rest:                      rest.New(rest.Config{BaseURL: server.URL}),
		solanaMaxMultipleAccounts: 2,
	}
}

func TestGetAccountInfoDecodesResult(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		td.Cmp(t, req.Method, "getAccountInfo")

		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"value": map[string]any{
					"executable": false,
					"lamports":   1,
					"owner":      "11111111111111111111111111111111",
					"data":       []any{"aGk=", "base64"},
				},
			},
		})
	})

	info, err := c.GetAccountInfo(context.Background(), "somepubkey", types.CommitmentFinalized)
	td.CmpNoError(t, err)
	td.Cmp(t, info.Data, []byte("hi"))
}

func TestGetMultipleAccountsBatches(t *testing.T) {
	var batchSizes []int
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		params := req.Params.([]any)
		pubkeys := params[0].([]any)
		batchSizes = append(batchSizes, len(pubkeys))

		values := make([]any, len(pubkeys))
		for i := range pubkeys {
			values[i] = map[string]any{
				"executable": false,
				"lamports":   1,
				"owner":      "x",
				"data":       []any{"", "base64"},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"value": values}})
	})

	accounts, err := c.GetMultipleAccounts(context.Background(), []string{"a", "b", "c"}, types.CommitmentFinalized)
	td.CmpNoError(t, err)
	td.Cmp(t, len(accounts), 3)
	td.Cmp(t, batchSizes, []int{2, 1})
}

func TestServerErrorSurfacesImmediately(t *testing.T) {
	attempts := 0
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": -32602, "message": "invalid params"},
		})
	})

	_, err := c.GetRecentBlockhash(context.Background())
	td.Require(t).CmpError(err)
	td.Cmp(t, relayerr.Is(err, relayerr.KindServerError), true)
	td.Cmp(t, attempts, 1)
}
