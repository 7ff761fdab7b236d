package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gamevault/topup-store/core/order"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Feed carries full order snapshots over redis pub/sub. Every writer of an
// order row publishes the fresh row after committing; watchers receive the
// current row first and then one message per mutation.
type Feed struct {
	rdb *redis.Client
	db  *sqlx.DB
	log logrus.FieldLogger
}

func NewFeed(log logrus.FieldLogger, rdb *redis.Client, db *sqlx.DB) *Feed {
	return &Feed{rdb: rdb, db: db, log: log}
}

func feedChannel(t order.Type, id string) string {
	return "orders." + t.Table() + "." + id
}

func (f *Feed) Publish(ctx context.Context, t order.Type, o order.Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshaling order[%s]: %w", o.ID, err)
	}

	if err := f.rdb.Publish(ctx, feedChannel(t, o.ID), b).Err(); err != nil {
		return fmt.Errorf("publishing order[%s]: %w", o.ID, err)
	}
	return nil
}

// Subscribe streams snapshots of one order. It returns order.ErrNotFound
// when the row does not exist, before any subscription is opened.
func (f *Feed) Subscribe(ctx context.Context, t order.Type, id string) (<-chan order.Order, error) {
	current, err := order.Fetch(ctx, f.db, t, id)
	if err != nil {
		return nil, err
	}

	sub := f.rdb.Subscribe(ctx, feedChannel(t, id))
	msgs := sub.Channel()

	out := make(chan order.Order, 8)
	go func() {
		defer close(out)
		defer sub.Close()

		select {
		case out <- current:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var o order.Order
				if err := json.Unmarshal([]byte(msg.Payload), &o); err != nil {
					f.log.WithField("message", err).Warn("discarding malformed order message")
					continue
				}

				select {
				case out <- o:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
