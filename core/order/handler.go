package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gamevault/topup-store/api/web"
	"github.com/gamevault/topup-store/api/weberr"
	"github.com/gamevault/topup-store/database"
	"github.com/gamevault/topup-store/validate"
	"github.com/jmoiron/sqlx"
)

// Publisher pushes a fresh order snapshot to everyone watching it.
type Publisher interface {
	Publish(ctx context.Context, t Type, o Order) error
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var on OrderNew
		if err := web.Decode(w, r, &on); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(on); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		o := Order{
			ID:         NewID(),
			Status:     Pending,
			Cost:       on.Cost,
			IntentLink: on.IntentLink,
			QRCode:     on.QRCode,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		t := ParseType(on.Type)
		if err := Create(ctx, db, t, o); err != nil {
			return fmt.Errorf("creating %s order: %w", t, err)
		}

		return web.Respond(ctx, w, o, http.StatusCreated)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		t := ParseType(web.Param(r, "type"))
		id := web.Param(r, "id")

		o, err := Fetch(ctx, db, t, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching %s order[%s]: %w", t, id, err)
		}

		return web.Respond(ctx, w, o, http.StatusOK)
	}
}

// HandleCancel lets the user abandon a pending payment. Cancellation is a
// self-inflicted failure: the order is marked failed here and every open
// reconciliation session observes it through the feed, exactly as it would
// a gateway-reported failure.
func HandleCancel(db *sqlx.DB, pub Publisher) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		t := ParseType(web.Param(r, "type"))
		id := web.Param(r, "id")

		// The write and the snapshot that gets published must see the
		// same row: no other writer may slip in between.
		var o Order
		err := database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := UpdateStatus(ctx, tx, t, id, Failed, false); err != nil {
				return err
			}

			var err error
			o, err = Fetch(ctx, tx, t, id)
			return err
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("cancelling %s order[%s]: %w", t, id, err)
		}

		if err := pub.Publish(ctx, t, o); err != nil {
			return fmt.Errorf("publishing cancelled order[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
