package core

import (
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

type Config struct {
	// StateDir holds one persisted record per distinct final URL, plus
	// redirect aliases.
	StateDir string
	// HTTPClient is the bare client used for fetching.
	HTTPClient    *http.Client
	RequestHeader http.Header
	Timeout       time.Duration
	// NoDiff emits the full rendering through OnRender instead of diffing.
	NoDiff bool
	// ContextLen is the number of unchanged lines kept around each change.
	ContextLen int
	// KeepGoing isolates per-URL failures: the batch continues and the run
	// reports an aggregate error at the end. The default aborts the batch on
	// the first error.
	KeepGoing bool
	// Interval enables watch mode when positive: the URL set is re-checked
	// repeatedly instead of once.
	Interval time.Duration
	// WatchBackoff schedules the next cycle after a failed one in watch
	// mode. It is reset whenever a cycle succeeds.
	WatchBackoff backoff.BackOff
	Logger       zerolog.Logger
	OnChange     OnChangeHandler
	OnRender     OnRenderHandler
}

func NewConfig(stateDir string) *Config {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.MaxInterval = 5 * time.Minute
	b.MaxElapsedTime = 0
	return &Config{
		StateDir: stateDir,
		// Not http.DefaultClient: the redirect policy is adjusted per
		// monitor and must not leak into a shared client.
		HTTPClient:   &http.Client{},
		Timeout:      30 * time.Second,
		ContextLen:   DefaultContextLen,
		WatchBackoff: b,
		Logger:       zerolog.Nop(),
	}
}
