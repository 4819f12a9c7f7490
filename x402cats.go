// Package x402cats wires the Pixel Cats mint client together: wallet
// adapters, the mint workflow, the supply poller and the x402
// payment-schema endpoint.
package x402cats

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitwit/x402cats/api"
	"github.com/vitwit/x402cats/clients"
	"github.com/vitwit/x402cats/config"
	"github.com/vitwit/x402cats/logger"
	"github.com/vitwit/x402cats/metrics"
	"github.com/vitwit/x402cats/mint"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/wallet"
	"golang.org/x/sync/errgroup"
)

const Version = "0.1.0"

// App is the main struct that provides all mint client functionality
type App struct {
	cfg        *config.Config
	wallet     *wallet.Manager
	controller *mint.Controller
	poller     *mint.Poller
	document   *types.X402Response

	logger   logger.Logger
	metrics  metrics.Recorder
	gatherer prometheus.Gatherer
	timeout  time.Duration
	adapters []wallet.Adapter
	confirm  wallet.ConfirmFunc
	notifier mint.Notifier
	public   mint.SupplyReader
	closers  []func()
}

// New creates an App from cfg. Wallet adapters default to the configured
// signer URL followed by the local private key.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, &types.Error{Code: types.ErrConfigError, Message: "config is required"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		timeout: cfg.Timeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.timeout <= 0 {
		a.timeout = 5 * time.Minute
	}

	if a.adapters == nil {
		a.adapters = []wallet.Adapter{
			wallet.RPCAdapter{URL: cfg.SignerURL, Rank: 0},
			wallet.KeyedAdapter{PrivateKey: cfg.PrivateKey, Chains: []types.ChainParams{cfg.Chain()}, Rank: 1, Confirm: a.confirm},
		}
	}

	if a.public == nil {
		p, err := wallet.DialRPC(context.Background(), cfg.PublicRPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create public RPC client: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		collection, err := clients.NewCollection(common.HexToAddress(cfg.CollectionAddress), p)
		if err != nil {
			return nil, err
		}
		a.public = collection
	}

	doc, err := api.NewDocument(cfg)
	if err != nil {
		return nil, err
	}
	a.document = doc

	ctrlOpts := []mint.Option{mint.WithLogger(a.logger), mint.WithMetrics(a.metrics)}
	if a.notifier != nil {
		ctrlOpts = append(ctrlOpts, mint.WithNotifier(a.notifier))
	}

	a.wallet = wallet.NewManager(a.adapters, a.logger, a.metrics)
	a.controller = mint.NewController(a.wallet, cfg.Mint(), ctrlOpts...)
	a.poller = mint.NewPoller(a.controller, a.public, cfg.PollInterval, a.logger, a.metrics)

	return a, nil
}

func (a *App) Controller() *mint.Controller {
	return a.controller
}

func (a *App) Document() *types.X402Response {
	return a.document
}

// Handler returns the HTTP router serving the payment schema.
func (a *App) Handler() (http.Handler, error) {
	opts := []api.Option{api.WithLogger(a.logger), api.WithMetrics(a.metrics)}
	if a.gatherer != nil {
		opts = append(opts, api.WithGatherer(a.gatherer))
	}
	return api.NewRouter(a.document, opts...)
}

// Serve runs the schema endpoint and the supply poller until ctx ends
// or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	h, err := a.Handler()
	if err != nil {
		return err
	}
	srv := api.NewServer(a.cfg.ListenAddr, h, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return a.poller.Run(gctx)
	})
	return g.Wait()
}

// Connect opens the wallet session
func (a *App) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.controller.Connect(ctx)
}

// Supply reads the minted count, through the wallet when connected.
func (a *App) Supply(ctx context.Context) (*mint.Supply, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.poller.Poll(ctx); err != nil {
		return nil, err
	}
	return a.controller.Supply(), nil
}

// Approve sets the quantity and approves its cost if the allowance does
// not already cover it.
func (a *App) Approve(ctx context.Context, quantity int64) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.connect(ctx, quantity); err != nil {
		return err
	}
	if !a.controller.ApproveEnabled() {
		a.logger.Info("allowance already covers quantity", map[string]any{"quantity": a.controller.Quantity()})
		return nil
	}
	return a.controller.Approve(ctx)
}

// Mint runs the full approve-then-mint sequence for quantity.
func (a *App) Mint(ctx context.Context, quantity int64) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.connect(ctx, quantity); err != nil {
		return err
	}
	if a.controller.ApproveEnabled() {
		if err := a.controller.Approve(ctx); err != nil {
			return err
		}
	}
	return a.controller.Mint(ctx)
}

func (a *App) connect(ctx context.Context, quantity int64) error {
	if err := a.controller.Connect(ctx); err != nil {
		return err
	}
	q, err := a.controller.SetQuantity(ctx, quantity)
	if err != nil {
		return err
	}
	if q != quantity {
		a.logger.Warn("quantity clamped", map[string]any{"requested": quantity, "quantity": q})
	}
	return nil
}

// StablecoinBalance reads the connected wallet's USDC balance.
func (a *App) StablecoinBalance(ctx context.Context) (*big.Int, error) {
	s := a.controller.Session()
	if s == nil {
		return nil, &types.Error{Code: types.ErrNotConnected, Message: "connect a wallet first"}
	}
	coin, err := clients.NewStablecoin(common.HexToAddress(a.cfg.USDCAddress), s.Provider)
	if err != nil {
		return nil, err
	}
	return coin.BalanceOf(ctx, s.Address)
}

// Close releases the wallet session and the public RPC client.
func (a *App) Close() {
	if err := a.controller.Disconnect(); err != nil {
		a.logger.Warn("disconnect while pending", map[string]any{"err": err})
	}
	for _, c := range a.closers {
		c()
	}
}
