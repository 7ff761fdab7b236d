package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gamevault/topup-store/config"
	"github.com/gamevault/topup-store/core/order"
)

func testGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGateway(config.Gateway{
		URL:    srv.URL,
		MaxRPS: 100,
	})
}

func TestGatewayCheckStatus(t *testing.T) {
	gw := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/check-status" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req struct {
			OrderID string `json:"order_id"`
			Type    string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		if req.OrderID != "ORD-1" || req.Type != "topup" {
			t.Errorf("unexpected request: %+v", req)
		}

		// The backend is sloppy about casing; the client must normalize.
		json.NewEncoder(w).Encode(map[string]string{"status": "SUCCESS"})
	})

	st, err := gw.CheckStatus(context.Background(), "ORD-1", order.TypeTopup)
	if err != nil {
		t.Fatalf("checking status: %v", err)
	}
	if st != order.Success {
		t.Fatalf("expected success, got %q", st)
	}
}

func TestGatewayCheckStatusPassesUnknownThrough(t *testing.T) {
	gw := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "processing"})
	})

	st, err := gw.CheckStatus(context.Background(), "ORD-1", order.TypeGame)
	if err != nil {
		t.Fatalf("checking status: %v", err)
	}
	if st.Terminal() {
		t.Fatalf("%q must not be terminal", st)
	}
}

func TestGatewayCheckStatusServerError(t *testing.T) {
	gw := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := gw.CheckStatus(context.Background(), "ORD-1", order.TypeTopup); err == nil {
		t.Fatal("expected an error on a non-2xx response")
	}
}
