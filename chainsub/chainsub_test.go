package chainsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/submux"
	"github.com/banky/relay/types"
	"github.com/maxatome/go-testdeep/td"
)

func TestSignatureAwaitResolvesOnNullErr(t *testing.T) {
	mux := submux.New("test")
	defer mux.Close()
	sig := &Signature{mux: mux}

	var captured func(json.RawMessage)
	subscribeFn := func(ctx context.Context, onNote func(json.RawMessage)) (uint64, error) {
		captured = onNote
		return 5, nil
	}

	resultCh := make(chan SignatureResult, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := sig.awaitWith(context.Background(), "sigABC", types.CommitmentConfirmed, subscribeFn)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- res
	}()

	waitForCapture(t, &captured)
	captured(json.RawMessage(`{"value":{"err":null}}`))

	select {
	case res := <-resultCh:
		td.CmpNil(t, res.Err)
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("signature await never resolved")
	}
}

func TestSignatureAwaitTimesOut(t *testing.T) {
	mux := submux.New("test")
	defer mux.Close()
	sig := &Signature{mux: mux}

	subscribeFn := func(ctx context.Context, onNote func(json.RawMessage)) (uint64, error) {
		return 6, nil
	}

	_, err := sig.awaitWithTimeout(context.Background(), "sigXYZ", types.CommitmentConfirmed, subscribeFn, 50*time.Millisecond)
	td.Require(t).CmpError(err)
	td.Cmp(t, relayerr.Is(err, relayerr.KindConfirmationTimeout), true)
}

func waitForCapture(t *testing.T, fn *func(json.RawMessage)) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if *fn != nil {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("subscribeFn was never invoked")
}
