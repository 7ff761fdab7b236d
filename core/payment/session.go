package payment

import (
	"context"
	"errors"
	"time"

	"github.com/gamevault/topup-store/config"
	"github.com/gamevault/topup-store/core/order"
	"github.com/sirupsen/logrus"
)

// State is the reconciliation outcome of one watch session. Only Pending
// may transition; every other state is final.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateExpired   State = "expired"
)

// Source names the input that observed a terminal condition first. The feed
// and the poll loop race freely; whichever wins is recorded, the loser is a
// no-op.
type Source string

const (
	SourceFeed  Source = "feed"
	SourcePoll  Source = "poll"
	SourceTimer Source = "timer"
)

// StatusChecker asks the payment backend for the current status of an order.
type StatusChecker interface {
	CheckStatus(ctx context.Context, id string, t order.Type) (order.Status, error)
}

// Subscriber opens a stream of order snapshots: the current row first, then
// one emission per remote mutation. It fails fast with order.ErrNotFound.
type Subscriber interface {
	Subscribe(ctx context.Context, t order.Type, id string) (<-chan order.Order, error)
}

// EventRecorder persists terminal transitions for the audit trail.
type EventRecorder interface {
	Record(t order.Type, id string, st State, src Source)
}

// Update is one frame streamed to the watching client.
type Update struct {
	State     State        `json:"state"`
	Remaining int          `json:"remainingSeconds"`
	Message   string       `json:"message,omitempty"`
	Redirect  string       `json:"redirect,omitempty"`
	Order     *order.Order `json:"order,omitempty"`
}

const (
	failedMessage      = "Payment failed. Please try again or contact support."
	expiredMessage     = "The payment window has expired. Please place a new order."
	notFoundMessage    = "We could not find this order."
	feedTroubleMessage = "Live updates interrupted, still checking your payment."
)

func successMessage(t order.Type) string {
	switch t {
	case order.TypeManual:
		return "Payment received. Your order has joined the processing queue."
	case order.TypeGame:
		return "Payment successful. Your top-up is being delivered."
	case order.TypeAccount:
		return "Payment successful. Your account details are on the way."
	default:
		return "Payment successful. Your wallet balance has been updated."
	}
}

// Session reconciles one order's status from three independent inputs: the
// order change feed, a recurring gateway poll and a countdown anchored to
// the order's creation time. All three are consumed by a single reducer
// goroutine, so the first terminal observation wins and the rest cannot
// fire side effects again.
type Session struct {
	orderID string
	typ     order.Type
	cfg     config.Payment
	log     logrus.FieldLogger
	gateway StatusChecker
	feed    Subscriber
	rec     EventRecorder

	state    State
	deadline time.Time
}

func NewSession(log logrus.FieldLogger, cfg config.Payment, gw StatusChecker, feed Subscriber, rec EventRecorder, t order.Type, id string) *Session {
	return &Session{
		orderID: id,
		typ:     t,
		cfg:     cfg,
		log:     log.WithFields(logrus.Fields{"order_id": id, "order_type": t}),
		gateway: gw,
		feed:    feed,
		rec:     rec,
		state:   StatePending,
	}
}

// Run drives the session until it reaches a terminal state or ctx is
// cancelled. The returned channel carries client-facing updates and is
// closed when the session is over.
func (s *Session) Run(ctx context.Context) <-chan Update {
	out := make(chan Update, 8)
	go s.run(ctx, out)
	return out
}

type pollResult struct {
	status order.Status
	err    error
}

func (s *Session) run(ctx context.Context, out chan<- Update) {
	defer close(out)

	snaps, err := s.feed.Subscribe(ctx, s.typ, s.orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			s.log.Warn("watch requested for unknown order")
			s.emit(ctx, out, Update{State: StateFailed, Message: notFoundMessage, Redirect: "/"})
			return
		}
		// A broken subscription is not terminal: the poll loop can still
		// settle the order on its own.
		s.log.WithField("message", err).Error("opening order subscription")
		snaps = nil
		s.emit(ctx, out, Update{State: StatePending, Remaining: s.remaining(), Message: feedTroubleMessage})
	}

	pollTimer := time.NewTimer(s.cfg.PollDelay)
	defer pollTimer.Stop()
	pollc := make(chan pollResult, 1)
	inFlight := false

	// The countdown starts only once the first snapshot delivers the
	// server-assigned creation time, so the deadline survives reloads.
	var tick *time.Ticker
	var tickc <-chan time.Time
	defer func() {
		if tick != nil {
			tick.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case o, ok := <-snaps:
			if !ok {
				// The feed connection dropped. Not fatal: the poll
				// loop keeps the session converging.
				s.log.Warn("order subscription closed, relying on poll loop")
				snaps = nil
				s.emit(ctx, out, Update{
					State:     StatePending,
					Remaining: s.remaining(),
					Message:   feedTroubleMessage,
				})
				continue
			}

			if tick == nil && s.state == StatePending && !o.CreatedAt.IsZero() {
				s.deadline = o.CreatedAt.Add(s.cfg.Window)
				tick = time.NewTicker(s.cfg.TickPeriod)
				tickc = tick.C
			}

			switch {
			case o.Paid(s.typ):
				if s.transition(StateSucceeded, SourceFeed) {
					s.finishSuccess(ctx, out, &o)
					return
				}
			case o.Declined():
				if s.transition(StateFailed, SourceFeed) {
					s.emit(ctx, out, Update{State: StateFailed, Message: failedMessage, Order: &o})
					return
				}
			default:
				s.emit(ctx, out, Update{State: StatePending, Remaining: s.remaining(), Order: &o})
			}

		case <-pollTimer.C:
			// Checked again at fire time: a terminal state latched after
			// scheduling suppresses the request entirely.
			if s.state != StatePending || inFlight {
				continue
			}
			inFlight = true
			go func() {
				st, err := s.gateway.CheckStatus(ctx, s.orderID, s.typ)
				select {
				case pollc <- pollResult{status: st, err: err}:
				case <-ctx.Done():
				}
			}()

		case res := <-pollc:
			inFlight = false
			if s.state != StatePending {
				continue
			}

			switch {
			case res.err != nil:
				// Transient: a single failed check never ends the session.
				s.log.WithField("message", res.err).Warn("payment status check failed")
			case res.status == order.Success || res.status == order.Completed:
				if s.transition(StateSucceeded, SourcePoll) {
					s.finishSuccess(ctx, out, nil)
					return
				}
			case res.status == order.Failed:
				if s.transition(StateFailed, SourcePoll) {
					s.emit(ctx, out, Update{State: StateFailed, Message: failedMessage})
					return
				}
			}

			pollTimer.Reset(s.cfg.PollInterval)

		case <-tickc:
			if time.Until(s.deadline) > 0 {
				s.emit(ctx, out, Update{State: StatePending, Remaining: s.remaining()})
				continue
			}
			if s.transition(StateExpired, SourceTimer) {
				s.emit(ctx, out, Update{State: StateExpired, Message: expiredMessage})
				return
			}
		}
	}
}

// transition latches a terminal state. It returns false when the session
// already left Pending, making every late observation a no-op.
func (s *Session) transition(to State, src Source) bool {
	if s.state != StatePending {
		return false
	}
	s.state = to
	s.log.WithFields(logrus.Fields{"state": to, "source": src}).Info("payment session settled")
	if s.rec != nil {
		s.rec.Record(s.typ, s.orderID, to, src)
	}
	return true
}

// finishSuccess emits the confirmation message, waits out the grace period
// and then tells the client where to go.
func (s *Session) finishSuccess(ctx context.Context, out chan<- Update, o *order.Order) {
	s.emit(ctx, out, Update{State: StateSucceeded, Message: successMessage(s.typ), Order: o})

	select {
	case <-time.After(s.cfg.RedirectDelay):
	case <-ctx.Done():
		return
	}

	s.emit(ctx, out, Update{State: StateSucceeded, Redirect: s.typ.Redirect()})
}

func (s *Session) remaining() int {
	if s.deadline.IsZero() {
		return int(s.cfg.Window / time.Second)
	}
	rem := time.Until(s.deadline)
	if rem < 0 {
		return 0
	}
	return int(rem / time.Second)
}

func (s *Session) emit(ctx context.Context, out chan<- Update, up Update) {
	select {
	case out <- up:
	case <-ctx.Done():
	}
}
