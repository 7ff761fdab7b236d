package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gamevault/topup-store/api/weberr"
	"github.com/gamevault/topup-store/core/order"
)

func TestHandleWatchStreamsUntilTerminal(t *testing.T) {
	gw := &fakeGateway{queue: []reply{{status: order.Pending}}}
	feed := &fakeFeed{snaps: make(chan order.Order, 4)}

	o := pendingOrder("ORD-1")
	feed.snaps <- o

	paid := o
	paid.Status = order.Success
	feed.snaps <- paid

	h := HandleWatch(testLogger(), testConfig(), gw, feed, &fakeRecorder{})

	r := httptest.NewRequest(http.MethodGet, "/payments/watch?order_id=ORD-1&type=game", nil)
	w := httptest.NewRecorder()

	done := make(chan error, 1)
	go func() { done <- h(r.Context(), w, r) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch handler returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch handler did not finish")
	}

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, `"state":"succeeded"`) {
		t.Fatalf("stream missing success frame:\n%s", body)
	}
	if !strings.Contains(body, `"redirect":"/orders"`) {
		t.Fatalf("stream missing redirect frame:\n%s", body)
	}
	if strings.Count(body, `"redirect"`) != 1 {
		t.Fatalf("redirect frame must appear exactly once:\n%s", body)
	}
}

func TestHandleWatchRequiresOrderID(t *testing.T) {
	h := HandleWatch(testLogger(), testConfig(), &fakeGateway{queue: []reply{{}}}, &fakeFeed{}, nil)

	r := httptest.NewRequest(http.MethodGet, "/payments/watch", nil)
	w := httptest.NewRecorder()

	err := h(context.Background(), w, r)
	if err == nil {
		t.Fatal("expected an error for a missing order_id")
	}

	if _, status, ok := weberr.Response(err); !ok || status != http.StatusBadRequest {
		t.Fatalf("expected a 400 response error, got %v", err)
	}
}

func TestHandleWebhookRejectsBadSecret(t *testing.T) {
	h := HandleWebhook(nil, nil, "s3cret")

	r := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{}`))
	r.Header.Set(webhookSecretHeader, "wrong")
	w := httptest.NewRecorder()

	err := h(context.Background(), w, r)
	if err == nil {
		t.Fatal("expected an error for a bad secret")
	}

	if _, status, ok := weberr.Response(err); !ok || status != http.StatusUnauthorized {
		t.Fatalf("expected a 401 response error, got %v", err)
	}
}

func TestHandleWebhookRejectsInvalidPayload(t *testing.T) {
	h := HandleWebhook(nil, nil, "")

	r := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{"order_id":"ORD-1"}`))
	w := httptest.NewRecorder()

	err := h(context.Background(), w, r)
	if err == nil {
		t.Fatal("expected a validation error for a payload without status")
	}

	if _, status, ok := weberr.Response(err); !ok || status != http.StatusUnprocessableEntity {
		t.Fatalf("expected a 422 response error, got %v", err)
	}
}

func TestHandleWebhookIgnoresNonTerminalStatus(t *testing.T) {
	h := HandleWebhook(nil, nil, "")

	body := `{"order_id":"ORD-1","type":"game","status":"processing"}`
	r := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()

	if err := h(context.Background(), w, r); err != nil {
		t.Fatalf("non-terminal status must be acknowledged, got %v", err)
	}
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}
