package config

import "time"

// Config collects every tunable of the service. Values are parsed from the
// environment with the TOPUP prefix (see cmd/server).
type Config struct {
	Web     Web
	Cors    Cors
	DB      DB
	Redis   Redis
	Gateway Gateway
	Payment Payment
	Limit   Limit
}

type Web struct {
	Address     string        `conf:"default:0.0.0.0:4000"`
	ReadTimeout time.Duration `conf:"default:5s"`
	// WriteTimeout stays 0: the watch endpoint holds a stream open for
	// up to the whole payment window.
	WriteTimeout    time.Duration `conf:"default:0s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:topup"`
	DisableTLS bool   `conf:"default:true"`
}

type Redis struct {
	Address  string `conf:"default:localhost:6379"`
	Password string `conf:"mask"`
	DB       int    `conf:"default:0"`
}

// Gateway points at the companion payment backend.
type Gateway struct {
	URL           string        `conf:"default:http://localhost:5005"`
	WebhookSecret string        `conf:"mask"`
	Timeout       time.Duration `conf:"default:3s"`
	// MaxRPS caps outbound check-status calls across all sessions.
	MaxRPS float64 `conf:"default:25"`
}

// Payment holds the reconciliation session timings. The defaults mirror the
// storefront behavior: first status check after 4s, a 10 minute payment
// window, and a short grace period before redirecting a paid user.
type Payment struct {
	PollInterval  time.Duration `conf:"default:4s"`
	PollDelay     time.Duration `conf:"default:4s"`
	Window        time.Duration `conf:"default:10m"`
	TickPeriod    time.Duration `conf:"default:900ms"`
	RedirectDelay time.Duration `conf:"default:2600ms"`
}

type Limit struct {
	RPS    float64 `conf:"default:5"`
	Burst  int     `conf:"default:10"`
	Expiry int     `conf:"default:30"`
}
