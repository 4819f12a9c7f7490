package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vitwit/x402cats/logger"
	"github.com/vitwit/x402cats/metrics"
	"github.com/vitwit/x402cats/types"
)

// Session is a connected wallet. It is created by Connect and discarded
// by Disconnect; a new connection yields a new Session.
type Session struct {
	Provider Provider
	Adapter  string
	Address  common.Address
	ChainID  uint64
}

// ShortAddress renders the address as 0x1234...abcd.
func (s *Session) ShortAddress() string {
	h := s.Address.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// Manager connects to wallets through a ranked list of adapters.
type Manager struct {
	adapters []Adapter
	logger   logger.Logger
	metrics  metrics.Recorder
}

func NewManager(adapters []Adapter, log logger.Logger, rec metrics.Recorder) *Manager {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Manager{
		adapters: Rank(adapters),
		logger:   log,
		metrics:  rec,
	}
}

// Connect opens the first available adapter, requests account access and
// reads the active chain.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	start := time.Now()

	tried := make([]string, 0, len(m.adapters))
	var adapter Adapter
	for _, a := range m.adapters {
		tried = append(tried, a.Name())
		if a.Available() {
			adapter = a
			break
		}
	}
	if adapter == nil {
		return nil, &NoProviderError{Tried: tried}
	}

	provider, err := adapter.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", adapter.Name(), err)
	}

	var accounts []common.Address
	if err := call(ctx, provider, &accounts, "eth_requestAccounts"); err != nil {
		closeProvider(provider)
		return nil, err
	}
	if len(accounts) == 0 {
		closeProvider(provider)
		return nil, ErrNoAccounts
	}

	chainID, err := readChainID(ctx, provider)
	if err != nil {
		closeProvider(provider)
		return nil, err
	}

	s := &Session{
		Provider: provider,
		Adapter:  adapter.Name(),
		Address:  accounts[0],
		ChainID:  chainID,
	}

	m.logger.Info("wallet connected", map[string]any{
		"adapter": s.Adapter,
		"address": s.Address.Hex(),
		"chainId": s.ChainID,
	})
	m.metrics.IncCounter(metrics.EventConnected, map[string]string{"stage": adapter.Name()})
	m.metrics.ObserveLatency(metrics.OpConnect, time.Since(start), nil)

	return s, nil
}

// EnsureChain moves the wallet onto target. Unknown chains (4902) are
// added with target's parameters. Any failure, including the user
// declining, is returned as a *ChainSwitchError and leaves s unchanged.
func (m *Manager) EnsureChain(ctx context.Context, s *Session, target types.ChainParams) error {
	want := target.ID()
	if s.ChainID == want {
		return nil
	}

	fail := func(err error) error {
		m.logger.Warn("chain switch failed", map[string]any{"from": s.ChainID, "to": want, "err": err})
		return &ChainSwitchError{From: s.ChainID, To: want, Cause: err}
	}

	err := call(ctx, s.Provider, nil, "wallet_switchEthereumChain", types.SwitchChainParams{ChainID: target.ChainID})
	if code, ok := ErrorCode(err); ok && code == CodeUnrecognizedChain {
		m.logger.Info("adding chain to wallet", map[string]any{"chain": target.ChainName})
		err = call(ctx, s.Provider, nil, "wallet_addEthereumChain", target)
	}
	if err != nil {
		return fail(err)
	}

	got, err := readChainID(ctx, s.Provider)
	if err != nil {
		return fail(err)
	}
	if got != want {
		return fail(fmt.Errorf("wallet still on chain %d", got))
	}

	m.logger.Info("chain switched", map[string]any{"from": s.ChainID, "to": got})
	m.metrics.IncCounter(metrics.EventChainSwitched, nil)
	s.ChainID = got
	return nil
}

// Disconnect releases the session's provider.
func (m *Manager) Disconnect(s *Session) {
	if s == nil {
		return
	}
	closeProvider(s.Provider)
	m.logger.Info("wallet disconnected", map[string]any{"address": s.Address.Hex()})
}

func readChainID(ctx context.Context, p Provider) (uint64, error) {
	var id hexutil.Uint64
	if err := call(ctx, p, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func closeProvider(p Provider) {
	if c, ok := p.(Closer); ok {
		c.Close()
	}
}
