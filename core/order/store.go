package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("order not found")

func Create(ctx context.Context, db sqlx.ExtContext, t Type, o Order) error {
	q := fmt.Sprintf(`
	INSERT INTO %s
		(order_id, status, cost, payment_received, intent_link, qr_code, created_at, updated_at)
	VALUES
		(:order_id, :status, :cost, :payment_received, :intent_link, :qr_code, :created_at, :updated_at)`,
		t.Table())

	if _, err := sqlx.NamedExecContext(ctx, db, q, o); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, t Type, id string) (Order, error) {
	q := fmt.Sprintf(`SELECT * FROM %s WHERE order_id = $1`, t.Table())

	var o Order
	if err := sqlx.GetContext(ctx, db, &o, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("fetching order: %w", err)
	}
	return o, nil
}

// UpdateStatus moves a pending order to a new status. Rows already in a
// terminal state are left untouched: status transitions are monotonic.
func UpdateStatus(ctx context.Context, db sqlx.ExtContext, t Type, id string, st Status, received bool) error {
	q := fmt.Sprintf(`
	UPDATE %s SET
		status = $2,
		payment_received = $3,
		updated_at = $4
	WHERE order_id = $1 AND status = 'pending'`, t.Table())

	res, err := db.ExecContext(ctx, q, id, st, received, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the order does not exist or it is already terminal.
		if _, err := Fetch(ctx, db, t, id); err != nil {
			return err
		}
	}
	return nil
}
