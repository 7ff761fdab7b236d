package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gamevault/topup-store/api/web"
	"github.com/gamevault/topup-store/api/weberr"
	"github.com/gamevault/topup-store/config"
	"github.com/gamevault/topup-store/core/order"
	"github.com/gamevault/topup-store/database"
	"github.com/gamevault/topup-store/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// HandleWatch opens a reconciliation session for one order and streams its
// updates as server-sent events. The session lives exactly as long as the
// request: when the client goes away the request context tears down the
// subscription, the poll loop and the countdown.
func HandleWatch(log logrus.FieldLogger, cfg config.Payment, gw StatusChecker, feed Subscriber, rec EventRecorder) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := r.URL.Query().Get("order_id")
		if id == "" {
			id = r.URL.Query().Get("orderId")
		}
		if id == "" {
			return weberr.BadRequest(errors.New("missing order_id parameter"))
		}
		t := order.ParseType(r.URL.Query().Get("type"))

		fl, ok := w.(http.Flusher)
		if !ok {
			return fmt.Errorf("response writer of %T cannot stream", w)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fl.Flush()

		s := NewSession(log, cfg, gw, feed, rec, t, id)
		for up := range s.Run(ctx) {
			b, err := json.Marshal(up)
			if err != nil {
				return fmt.Errorf("marshaling session update: %w", err)
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
				// Client is gone; ctx cancellation will stop the session.
				return nil
			}
			fl.Flush()
		}

		return nil
	}
}

type webhookPayload struct {
	OrderID string `json:"order_id" validate:"required"`
	Type    string `json:"type"`
	Status  string `json:"status" validate:"required"`
}

const webhookSecretHeader = "X-Webhook-Secret"

// HandleWebhook receives status pushes from the payment backend. It is one
// of the two external writers of an order row (the other being the user's
// cancel action); both funnel their writes through the feed so every open
// session observes them.
func HandleWebhook(db *sqlx.DB, feed *Feed, secret string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if secret != "" {
			got := r.Header.Get(webhookSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return weberr.NotAuthorized(errors.New("webhook signature mismatch"))
			}
		}

		var wp webhookPayload
		if err := web.Decode(w, r, &wp); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(wp); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		st := order.NormalizeStatus(wp.Status)
		if !st.Terminal() {
			// Progress notifications carry nothing the poll loop would
			// not pick up; acknowledge and move on.
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		t := order.ParseType(wp.Type)
		received := st == order.Success || st == order.Completed

		// Update and re-read in one transaction so the published snapshot
		// is exactly the row this webhook produced.
		var o order.Order
		err := database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := order.UpdateStatus(ctx, tx, t, wp.OrderID, st, received); err != nil {
				return err
			}

			var err error
			o, err = order.Fetch(ctx, tx, t, wp.OrderID)
			return err
		})
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("applying webhook to %s order[%s]: %w", t, wp.OrderID, err)
		}

		if err := feed.Publish(ctx, t, o); err != nil {
			return fmt.Errorf("publishing updated order[%s]: %w", wp.OrderID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
