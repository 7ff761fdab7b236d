package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/gamevault/topup-store/api/background"
	"github.com/gamevault/topup-store/core/order"
	"github.com/gamevault/topup-store/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Event is one terminal session transition, kept for the audit trail. The
// source column preserves which input won the race, and expiry stays
// distinguishable from an explicit failure.
type Event struct {
	ID        string    `db:"event_id"`
	OrderID   string    `db:"order_id"`
	OrderType string    `db:"order_type"`
	State     string    `db:"state"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

func InsertEvent(ctx context.Context, db sqlx.ExtContext, ev Event) error {
	const q = `
	INSERT INTO payment_events
		(event_id, order_id, order_type, state, source, created_at)
	VALUES
		(:event_id, :order_id, :order_type, :state, :source, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ev); err != nil {
		return fmt.Errorf("inserting payment event: %w", err)
	}
	return nil
}

// Recorder writes audit events off the session loop so a slow insert can
// never delay an update frame.
type Recorder struct {
	db  *sqlx.DB
	bg  *background.Background
	log logrus.FieldLogger
}

func NewRecorder(log logrus.FieldLogger, db *sqlx.DB, bg *background.Background) *Recorder {
	return &Recorder{db: db, bg: bg, log: log}
}

func (r *Recorder) Record(t order.Type, id string, st State, src Source) {
	ev := Event{
		ID:        validate.GenerateID(),
		OrderID:   id,
		OrderType: string(t),
		State:     string(st),
		Source:    string(src),
		CreatedAt: time.Now().UTC(),
	}

	r.bg.Add(func(ctx context.Context) {
		if err := InsertEvent(ctx, r.db, ev); err != nil {
			r.log.WithField("message", err).Error("recording payment event")
		}
	})
}
