package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

var _ Provider = (*RPCProvider)(nil)

// RPCProvider forwards requests to a JSON-RPC endpoint. Pointed at an
// external signer it acts as a wallet; pointed at a public node it serves
// read-only calls.
type RPCProvider struct {
	client *rpc.Client
}

func DialRPC(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wallet RPC: %w", err)
	}
	return &RPCProvider{client: client}, nil
}

func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

func (p *RPCProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := p.client.CallContext(ctx, &raw, method, params...); err != nil {
		return nil, toProviderError(err)
	}
	return raw, nil
}

func (p *RPCProvider) Close() {
	p.client.Close()
}

func toProviderError(err error) error {
	var rerr rpc.Error
	if !errors.As(err, &rerr) {
		return err
	}
	perr := &ProviderError{Code: rerr.ErrorCode(), Message: rerr.Error()}
	var derr rpc.DataError
	if errors.As(err, &derr) {
		perr.Data = derr.ErrorData()
	}
	return perr
}

// RPCAdapter connects to an external signer such as a wallet daemon.
type RPCAdapter struct {
	URL  string
	Rank int
}

func (a RPCAdapter) Name() string    { return "rpc-signer" }
func (a RPCAdapter) Priority() int   { return a.Rank }
func (a RPCAdapter) Available() bool { return a.URL != "" }

func (a RPCAdapter) Open(ctx context.Context) (Provider, error) {
	p, err := DialRPC(ctx, a.URL)
	if err != nil {
		return nil, err
	}
	return p, nil
}
