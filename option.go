package x402cats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitwit/x402cats/logger"
	"github.com/vitwit/x402cats/metrics"
	"github.com/vitwit/x402cats/mint"
	"github.com/vitwit/x402cats/wallet"
)

type Option func(*App)

func WithLogger(l logger.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(a *App) {
		a.metrics = r
	}
}

// WithGatherer exposes g on the server's /metrics route.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *App) {
		a.gatherer = g
	}
}

func WithTimeout(t time.Duration) Option {
	return func(a *App) {
		a.timeout = t
	}
}

// WithAdapters replaces the wallet adapters built from the config.
func WithAdapters(adapters ...wallet.Adapter) Option {
	return func(a *App) {
		a.adapters = adapters
	}
}

// WithConfirm is asked before the local-key wallet signs a transaction.
func WithConfirm(confirm wallet.ConfirmFunc) Option {
	return func(a *App) {
		a.confirm = confirm
	}
}

// WithPublicReader replaces the public RPC used for supply reads while
// no wallet is connected.
func WithPublicReader(r mint.SupplyReader) Option {
	return func(a *App) {
		a.public = r
	}
}

func WithNotifier(n mint.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}
