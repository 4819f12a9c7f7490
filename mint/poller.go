package mint

import (
	"context"
	"math/big"
	"time"

	"github.com/vitwit/x402cats/logger"
	"github.com/vitwit/x402cats/metrics"
)

// DefaultPollInterval is how often the minted count is re-read.
const DefaultPollInterval = 30 * time.Second

// SupplyReader reads the collection's total supply.
type SupplyReader interface {
	TotalSupply(ctx context.Context) (*big.Int, error)
}

// Poller periodically re-reads total supply, through the connected
// session when there is one and a public read-only binding otherwise.
// Its reads race mint confirmations and only ever advance the display.
type Poller struct {
	controller *Controller
	public     SupplyReader
	interval   time.Duration
	logger     logger.Logger
	metrics    metrics.Recorder
}

func NewPoller(controller *Controller, public SupplyReader, interval time.Duration, log logger.Logger, rec metrics.Recorder) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Poller{
		controller: controller,
		public:     public,
		interval:   interval,
		logger:     log,
		metrics:    rec,
	}
}

// Run polls immediately and then on every tick until ctx is done.
// Read errors are logged and the next tick tries again.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("failed to get minted count", map[string]any{"err": err})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll performs one read and records it.
func (p *Poller) Poll(ctx context.Context) error {
	reader := p.controller.SupplyReader()
	source := "session"
	if reader == nil {
		reader = p.public
		source = "public"
	}
	if reader == nil {
		return nil
	}

	n, err := reader.TotalSupply(ctx)
	if err != nil {
		return err
	}

	advanced := p.controller.ObserveSupply(n)
	p.metrics.IncCounter(metrics.EventSupplyPolled, map[string]string{"stage": source})
	p.logger.Debug("supply polled", map[string]any{
		"source":   source,
		"read":     n.String(),
		"display":  p.controller.Supply().Display(),
		"advanced": advanced,
	})
	return nil
}
