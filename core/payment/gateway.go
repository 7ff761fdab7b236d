package payment

import (
	"context"
	"fmt"

	"github.com/gamevault/topup-store/config"
	"github.com/gamevault/topup-store/core/order"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Gateway talks to the companion payment backend over HTTP.
type Gateway struct {
	client *resty.Client
	limit  *rate.Limiter
}

func NewGateway(cfg config.Gateway) *Gateway {
	c := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout)

	return &Gateway{
		client: c,
		// One shared bucket: many concurrent sessions must not stampede
		// the gateway.
		limit: rate.NewLimiter(rate.Limit(cfg.MaxRPS), int(cfg.MaxRPS)),
	}
}

type checkStatusRequest struct {
	OrderID string `json:"order_id"`
	Type    string `json:"type"`
}

type checkStatusResponse struct {
	Status string `json:"status"`
}

// CheckStatus asks the backend where a payment stands. Anything outside the
// known terminal statuses is reported as-is and treated by callers as
// "still pending".
func (g *Gateway) CheckStatus(ctx context.Context, id string, t order.Type) (order.Status, error) {
	if err := g.limit.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for gateway slot: %w", err)
	}

	var out checkStatusResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(checkStatusRequest{OrderID: id, Type: string(t)}).
		SetResult(&out).
		Post("/check-status")
	if err != nil {
		return "", fmt.Errorf("checking status of order[%s]: %w", id, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("check-status for order[%s] returned %s", id, resp.Status())
	}

	return order.NormalizeStatus(out.Status), nil
}
