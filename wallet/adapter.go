package wallet

import (
	"context"
	"sort"
)

// Adapter is a source of wallet providers. Connect asks adapters in
// ascending Priority order and opens the first one that is Available.
type Adapter interface {
	Name() string
	Priority() int
	Available() bool
	Open(ctx context.Context) (Provider, error)
}

// Rank returns the adapters sorted by priority. Equal priorities keep
// their configured order.
func Rank(adapters []Adapter) []Adapter {
	ranked := make([]Adapter, len(adapters))
	copy(ranked, adapters)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority() < ranked[j].Priority()
	})
	return ranked
}

// StaticAdapter wraps an already constructed provider.
type StaticAdapter struct {
	AdapterName string
	Rank        int
	Provider    Provider
}

func (s StaticAdapter) Name() string    { return s.AdapterName }
func (s StaticAdapter) Priority() int   { return s.Rank }
func (s StaticAdapter) Available() bool { return s.Provider != nil }
func (s StaticAdapter) Open(context.Context) (Provider, error) {
	return s.Provider, nil
}
