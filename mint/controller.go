package mint

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/x402cats/clients"
	"github.com/vitwit/x402cats/logger"
	"github.com/vitwit/x402cats/metrics"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/wallet"
)

// Config holds the collection constants the workflow runs against.
type Config struct {
	Chain           types.ChainParams
	Collection      common.Address
	Stablecoin      common.Address
	UnitPrice       *big.Int
	MaxPerWallet    int64
	MaxSupply       int64
	StatusTTL       time.Duration
	ReceiptInterval time.Duration
	ConfirmTimeout  time.Duration
}

// DefaultConfig returns the Pixel Cats deployment on Base.
func DefaultConfig() Config {
	return Config{
		Chain:           types.BaseMainnet(),
		Collection:      common.HexToAddress("0x86F81966e14dA17193CC3F3d6903184730F36681"),
		Stablecoin:      common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		UnitPrice:       big.NewInt(3_000_000),
		MaxPerWallet:    20,
		MaxSupply:       5555,
		StatusTTL:       DefaultStatusTTL,
		ReceiptInterval: clients.DefaultPollInterval,
		ConfirmTimeout:  5 * time.Minute,
	}
}

type Option func(*Controller)

func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Controller) {
		c.metrics = r
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithClock replaces time.Now for status expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller runs the mint workflow for one wallet session at a time.
// Approve and Mint block until the transaction is confirmed or fails;
// a second call while one is pending returns ErrBusy.
type Controller struct {
	cfg      Config
	wallet   *wallet.Manager
	supply   *Supply
	logger   logger.Logger
	metrics  metrics.Recorder
	notifier Notifier
	now      func() time.Time

	mu           sync.Mutex
	state        State
	prior        State
	connecting   bool
	session      *wallet.Session
	collection   *clients.Collection
	coin         *clients.Stablecoin
	request      Request
	unitPrice    *big.Int
	allowance    *big.Int
	balance      *big.Int
	maxPerWallet int64
	status       Status
	failure      *Failure
}

func NewController(manager *wallet.Manager, cfg Config, opts ...Option) *Controller {
	if cfg.UnitPrice == nil {
		cfg.UnitPrice = DefaultConfig().UnitPrice
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = DefaultStatusTTL
	}
	if cfg.MaxPerWallet <= 0 {
		cfg.MaxPerWallet = DefaultConfig().MaxPerWallet
	}
	if cfg.MaxSupply <= 0 {
		cfg.MaxSupply = DefaultConfig().MaxSupply
	}

	c := &Controller{
		cfg:          cfg,
		wallet:       manager,
		supply:       NewSupply(cfg.MaxSupply),
		logger:       logger.NoopLogger{},
		metrics:      metrics.NoopRecorder{},
		notifier:     noopNotifier{},
		now:          time.Now,
		state:        Disconnected,
		request:      NewRequest(1, cfg.MaxPerWallet, cfg.UnitPrice),
		unitPrice:    cfg.UnitPrice,
		allowance:    new(big.Int),
		balance:      new(big.Int),
		maxPerWallet: cfg.MaxPerWallet,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func errBusy() error {
	return &types.Error{Code: types.ErrBusy, Message: "a transaction is already pending"}
}

func errNotConnected() error {
	return &types.Error{Code: types.ErrNotConnected, Message: "connect a wallet first"}
}

func errTransition(from State, op string) error {
	return &types.Error{
		Code:    types.ErrInvalidTransition,
		Message: fmt.Sprintf("cannot %s while %s", op, from),
	}
}

// Connect opens a wallet session, moves it onto the collection's chain
// and reads the approval state.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connecting || c.state.Pending() {
		c.mu.Unlock()
		return errBusy()
	}
	if c.session != nil {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
	}()

	s, err := c.wallet.Connect(ctx)
	if err != nil {
		return c.connectFailed(err)
	}
	if err := c.wallet.EnsureChain(ctx, s, c.cfg.Chain); err != nil {
		c.wallet.Disconnect(s)
		return c.connectFailed(err)
	}

	collection, err := clients.NewCollection(c.cfg.Collection, s.Provider)
	if err != nil {
		c.wallet.Disconnect(s)
		return c.connectFailed(err)
	}
	coin, err := clients.NewStablecoin(c.cfg.Stablecoin, s.Provider)
	if err != nil {
		c.wallet.Disconnect(s)
		return c.connectFailed(err)
	}

	c.mu.Lock()
	c.session = s
	c.collection = collection
	c.coin = coin
	c.state = Connected
	c.prior = Connected
	c.failure = nil
	c.mu.Unlock()

	c.logger.Info("mint session ready", map[string]any{"address": s.Address.Hex(), "chainId": s.ChainID})

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial refresh failed", map[string]any{"err": err})
	}
	return nil
}

// connectFailed reports a failed connection. The workflow stays disconnected.
func (c *Controller) connectFailed(err error) error {
	f := Classify(OpConnect, err)
	c.logger.Error("wallet connection failed", map[string]any{"kind": string(f.Kind), "err": err})
	c.metrics.IncCounter(metrics.EventTxFailed, map[string]string{"stage": OpConnect, "kind": string(f.Kind)})
	c.setStatus(f.Message, StatusError)
	return f
}

// Disconnect drops the session and resets the workflow.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.state.Pending() {
		c.mu.Unlock()
		return errBusy()
	}
	s := c.session
	c.session = nil
	c.collection = nil
	c.coin = nil
	c.state = Disconnected
	c.prior = Disconnected
	c.failure = nil
	c.allowance = new(big.Int)
	c.balance = new(big.Int)
	c.mu.Unlock()

	c.wallet.Disconnect(s)
	return nil
}

// Refresh re-reads allowance, wallet balance and collection limits. The
// per-wallet cap, supply cap and price fall back to the last known values
// when their reads fail.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	s, collection, coin := c.session, c.collection, c.coin
	c.mu.Unlock()
	if s == nil {
		return errNotConnected()
	}

	allowance, err := coin.Allowance(ctx, s.Address, c.cfg.Collection)
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}
	balance, err := collection.BalanceOf(ctx, s.Address)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	perWallet, err := collection.MaxPerWallet(ctx)
	if err != nil {
		c.logger.Warn("max per wallet read failed", map[string]any{"err": err})
		perWallet = nil
	}
	price, err := collection.MintPrice(ctx)
	if err != nil {
		c.logger.Warn("mint price read failed", map[string]any{"err": err})
		price = nil
	}
	if maxSupply, err := collection.MaxSupply(ctx); err == nil {
		c.supply.SetMax(maxSupply)
	}
	if total, err := collection.TotalSupply(ctx); err == nil {
		c.ObserveSupply(total)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != s {
		return nil
	}
	c.allowance = allowance
	c.balance = balance
	if perWallet != nil && perWallet.IsInt64() && perWallet.Int64() > 0 {
		c.maxPerWallet = perWallet.Int64()
	}
	if price != nil && price.Sign() > 0 {
		c.unitPrice = price
	}
	c.request = NewRequest(c.request.Quantity, c.maxPerWallet, c.unitPrice)
	c.derive()
	return nil
}

// derive sets Connected or Approved from the cached allowance. Minted and
// the in-flight states are left alone. Callers hold c.mu.
func (c *Controller) derive() {
	if c.state != Connected && c.state != Approved {
		return
	}
	if c.request.Covered(c.allowance) {
		c.state = Approved
	} else {
		c.state = Connected
	}
}

// SetQuantity clamps q to [1, per-wallet max], stores it and re-reads the
// allowance when connected. It returns the clamped quantity.
func (c *Controller) SetQuantity(ctx context.Context, q int64) (int64, error) {
	c.mu.Lock()
	if c.state.Pending() {
		q := c.request.Quantity
		c.mu.Unlock()
		return q, errBusy()
	}
	if c.state == Error {
		c.dismissLocked()
	}
	c.request = NewRequest(q, c.maxPerWallet, c.unitPrice)
	clamped := c.request.Quantity
	s, coin := c.session, c.coin
	c.derive()
	c.mu.Unlock()

	if s == nil {
		return clamped, nil
	}

	allowance, err := coin.Allowance(ctx, s.Address, c.cfg.Collection)
	if err != nil {
		c.logger.Warn("approval check failed", map[string]any{"err": err})
		return clamped, nil
	}

	c.mu.Lock()
	if c.session == s {
		c.allowance = allowance
		c.derive()
	}
	c.mu.Unlock()
	return clamped, nil
}

// Increase and Decrease step the quantity by one within bounds.
func (c *Controller) Increase(ctx context.Context) (int64, error) {
	return c.SetQuantity(ctx, c.Quantity()+1)
}

func (c *Controller) Decrease(ctx context.Context) (int64, error) {
	return c.SetQuantity(ctx, c.Quantity()-1)
}

// Approve lets the collection spend quantity * unit price of the
// stablecoin and waits for the approval to be mined.
func (c *Controller) Approve(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Error {
		c.dismissLocked()
	}
	if err := c.checkIdleLocked(OpApprove); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.request.Covered(c.allowance) {
		c.mu.Unlock()
		return &types.Error{Code: types.ErrInvalidTransition, Message: "USDC already approved for this quantity"}
	}
	prior := c.state
	c.prior = prior
	c.state = Approving
	s, coin := c.session, c.coin
	amount := c.request.Total()
	c.mu.Unlock()

	start := time.Now()
	c.setStatus("Approving USDC...", StatusLoading)
	c.logger.Info("approving stablecoin", map[string]any{"amount": amount.String(), "spender": c.cfg.Collection.Hex()})

	hash, err := coin.Approve(ctx, s.Address, c.cfg.Collection, amount)
	if err != nil {
		return c.fail(OpApprove, prior, err)
	}
	c.submitted(OpApprove, hash)

	if _, err := c.waitMined(ctx, s, hash); err != nil {
		return c.fail(OpApprove, prior, err)
	}
	c.confirmed(OpApprove, hash, start)

	c.mu.Lock()
	if c.session == s {
		c.allowance = amount
		c.state = Approved
		c.prior = Approved
		c.failure = nil
	}
	c.mu.Unlock()

	c.setStatus("USDC approved successfully!", StatusSuccess)
	return nil
}

// Mint mints the requested quantity and waits for confirmation. The
// wallet cap, the sale flag and remaining supply are checked before
// anything is sent.
func (c *Controller) Mint(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Error {
		c.dismissLocked()
	}
	if err := c.checkIdleLocked(OpMint); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.request.Covered(c.allowance) {
		c.mu.Unlock()
		return &types.Error{Code: types.ErrInvalidTransition, Message: "approve USDC before minting"}
	}
	prior := c.state
	c.prior = prior
	c.state = Minting
	s, collection := c.session, c.collection
	req := c.request
	balance := new(big.Int).Set(c.balance)
	perWallet := c.maxPerWallet
	c.mu.Unlock()

	start := time.Now()

	if b, err := collection.BalanceOf(ctx, s.Address); err == nil {
		balance = b
	}
	if new(big.Int).Add(balance, big.NewInt(req.Quantity)).Cmp(big.NewInt(perWallet)) > 0 {
		return c.fail(OpMint, prior, limitFailure(OpMint,
			fmt.Sprintf("Exceeds max %d NFTs per wallet (you hold %s)", perWallet, balance)))
	}
	if active, err := collection.MintActive(ctx); err == nil && !active {
		return c.fail(OpMint, prior, &Failure{
			Op:      OpMint,
			Kind:    KindMintInactive,
			Message: kindMessages[KindMintInactive],
		})
	}
	if total, err := collection.TotalSupply(ctx); err == nil {
		c.ObserveSupply(total)
	}
	if c.supply.Remaining().Cmp(big.NewInt(req.Quantity)) < 0 {
		return c.fail(OpMint, prior, &Failure{
			Op:      OpMint,
			Kind:    KindSupplyExhausted,
			Message: fmt.Sprintf("Only %s NFTs left to mint", c.supply.Remaining()),
		})
	}

	c.setStatus(mintingMessage(req.Quantity), StatusLoading)
	c.logger.Info("minting", map[string]any{"quantity": req.Quantity, "cost": req.Total().String()})

	before := c.supply.Current()
	hash, err := collection.Mint(ctx, s.Address, req.Quantity)
	if err != nil {
		return c.fail(OpMint, prior, err)
	}
	c.submitted(OpMint, hash)

	if _, err := c.waitMined(ctx, s, hash); err != nil {
		return c.fail(OpMint, prior, err)
	}
	c.confirmed(OpMint, hash, start)

	read, err := collection.TotalSupply(ctx)
	if err != nil {
		c.logger.Warn("supply re-read failed", map[string]any{"err": err})
		read = nil
	}
	minted := c.supply.Minted(before, req.Quantity, read)
	c.metrics.SetGauge(metrics.GaugeTotalSupply, bigFloat(minted))

	c.mu.Lock()
	if c.session == s {
		c.state = Minted
		c.prior = Minted
		c.failure = nil
		c.balance = new(big.Int).Add(balance, big.NewInt(req.Quantity))
		c.allowance = new(big.Int).Sub(c.allowance, req.Total())
		if c.allowance.Sign() < 0 {
			c.allowance = new(big.Int)
		}
	}
	c.mu.Unlock()

	c.setStatus(mintedMessage(req.Quantity), StatusSuccess)

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("post-mint refresh failed", map[string]any{"err": err})
	}
	return nil
}

// checkIdleLocked rejects op unless a session is open and nothing is pending.
func (c *Controller) checkIdleLocked(op string) error {
	if c.state.Pending() || c.connecting {
		return errBusy()
	}
	if c.session == nil {
		return errNotConnected()
	}
	if !c.state.settled() {
		return errTransition(c.state, op)
	}
	return nil
}

func (c *Controller) waitMined(ctx context.Context, s *wallet.Session, hash common.Hash) (*types.Receipt, error) {
	c.setStatus("Waiting for confirmation...", StatusLoading)
	if c.cfg.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
		defer cancel()
	}
	return clients.WaitMined(ctx, s.Provider, hash, c.cfg.ReceiptInterval)
}

func (c *Controller) submitted(op string, hash common.Hash) {
	c.logger.Info("transaction submitted", c.logFields(map[string]any{"operation": op, "txHash": hash.Hex()}))
	c.metrics.IncCounter(metrics.EventTxSubmitted, map[string]string{"stage": op})
}

func (c *Controller) confirmed(op string, hash common.Hash, start time.Time) {
	c.logger.Info("transaction confirmed", c.logFields(map[string]any{"operation": op, "txHash": hash.Hex()}))
	c.metrics.IncCounter(metrics.EventTxConfirmed, map[string]string{"stage": op})
	c.metrics.ObserveLatency(op, time.Since(start), map[string]string{"stage": "confirmed"})
}

// fail moves the workflow into Error, remembering prior for Dismiss.
func (c *Controller) fail(op string, prior State, err error) error {
	f := Classify(op, err)

	c.mu.Lock()
	c.state = Error
	c.prior = prior
	c.failure = f
	c.mu.Unlock()

	c.logger.Error("workflow step failed", c.logFields(map[string]any{
		"operation": op,
		"kind":      string(f.Kind),
		"prior":     prior.String(),
		"err":       err,
	}))
	c.metrics.IncCounter(metrics.EventTxFailed, map[string]string{"stage": op, "kind": string(f.Kind)})
	c.setStatus(f.Message, StatusError)
	return f
}

// logFields adds the session address and current state to extra.
func (c *Controller) logFields(extra map[string]any) map[string]any {
	c.mu.Lock()
	base := map[string]any{"state": c.state.String()}
	if c.session != nil {
		base["address"] = c.session.Address.Hex()
	}
	c.mu.Unlock()
	return logger.Merge(base, extra)
}

// Dismiss clears the status message and leaves Error for the prior state.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	c.dismissLocked()
	c.status = Status{}
	c.mu.Unlock()
}

func (c *Controller) dismissLocked() {
	if c.state != Error {
		return
	}
	c.state = c.prior
	c.failure = nil
	c.derive()
}

func (c *Controller) setStatus(msg string, kind StatusKind) {
	s := Status{Message: msg, Kind: kind}
	if kind != StatusLoading {
		s.Expires = c.now().Add(c.cfg.StatusTTL)
	}

	c.mu.Lock()
	c.status = s
	c.mu.Unlock()

	c.notifier.Notify(s)
}

// ObserveSupply records a total supply read from outside the workflow.
func (c *Controller) ObserveSupply(n *big.Int) bool {
	advanced := c.supply.Observe(n)
	if advanced {
		c.metrics.SetGauge(metrics.GaugeTotalSupply, bigFloat(n))
	}
	return advanced
}

// SupplyReader returns the session's collection binding, or nil when no
// wallet is connected.
func (c *Controller) SupplyReader() SupplyReader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collection == nil {
		return nil
	}
	return c.collection
}

func (c *Controller) Supply() *Supply {
	return c.supply
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Quantity() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request.Quantity
}

func (c *Controller) Session() *wallet.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Failure returns the failure behind the Error state, if any.
func (c *Controller) Failure() *Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Status returns the current message, or the zero Status once it expired.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.Visible(c.now()) {
		return Status{}
	}
	return c.status
}

// ApproveEnabled reports whether the approve control should be active:
// connected, idle, and the allowance does not cover the quantity.
func (c *Controller) ApproveEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idleLocked() && !c.request.Covered(c.allowance)
}

// MintEnabled reports whether the mint control should be active.
func (c *Controller) MintEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idleLocked() && c.request.Covered(c.allowance)
}

func (c *Controller) idleLocked() bool {
	if c.session == nil || c.connecting {
		return false
	}
	state := c.state
	if state == Error {
		state = c.prior
	}
	return state.settled()
}

// Snapshot is a consistent view of the workflow for rendering.
type Snapshot struct {
	State          State
	Address        common.Address
	ShortAddress   string
	ChainID        uint64
	Quantity       int64
	Total          *big.Int
	TotalDisplay   string
	Allowance      *big.Int
	Approved       bool
	ApproveEnabled bool
	MintEnabled    bool
	Balance        *big.Int
	MaxPerWallet   int64
	Supply         string
	Status         Status
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:        c.state,
		Quantity:     c.request.Quantity,
		Total:        c.request.Total(),
		TotalDisplay: c.request.TotalDisplay(),
		Allowance:    new(big.Int).Set(c.allowance),
		Approved:     c.request.Covered(c.allowance),
		Balance:      new(big.Int).Set(c.balance),
		MaxPerWallet: c.maxPerWallet,
		Supply:       c.supply.Display(),
	}
	if c.session != nil {
		snap.Address = c.session.Address
		snap.ShortAddress = c.session.ShortAddress()
		snap.ChainID = c.session.ChainID
	}
	idle := c.idleLocked()
	snap.ApproveEnabled = idle && !snap.Approved
	snap.MintEnabled = idle && snap.Approved
	if c.status.Visible(c.now()) {
		snap.Status = c.status
	}
	return snap
}

func bigFloat(n *big.Int) float64 {
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}
