package api

import (
	"context"
	"net/http"

	"github.com/gamevault/topup-store/api/middleware"
	"github.com/gamevault/topup-store/api/web"
	"github.com/gamevault/topup-store/config"
	"github.com/gamevault/topup-store/core/order"
	"github.com/gamevault/topup-store/core/payment"
	"github.com/gamevault/topup-store/rate"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin    string
	Log           logrus.FieldLogger
	DB            *sqlx.DB
	Gateway       payment.StatusChecker
	Feed          *payment.Feed
	Recorder      payment.EventRecorder
	PaymentCfg    config.Payment
	WebhookSecret string
	Limiter       *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	limited := middleware.RateLimit(cfg.Limiter)

	a.Handle(http.MethodPost, "/orders", order.HandleCreate(cfg.DB), limited)
	a.Handle(http.MethodGet, "/orders/{type}/{id}", order.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/orders/{type}/{id}/cancel", order.HandleCancel(cfg.DB, cfg.Feed), limited)

	a.Handle(http.MethodGet, "/payments/watch", payment.HandleWatch(cfg.Log, cfg.PaymentCfg, cfg.Gateway, cfg.Feed, cfg.Recorder))
	a.Handle(http.MethodPost, "/payments/webhook", payment.HandleWebhook(cfg.DB, cfg.Feed, cfg.WebhookSecret))

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
