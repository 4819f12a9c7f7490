package mint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupplyOnlyAdvances(t *testing.T) {
	s := NewSupply(5555)

	assert.True(t, s.Observe(big.NewInt(100)))
	assert.False(t, s.Observe(big.NewInt(90)))
	assert.False(t, s.Observe(big.NewInt(100)))
	assert.False(t, s.Observe(nil))
	assert.Equal(t, "100/5555", s.Display())
	assert.Equal(t, int64(101), s.NextTokenID().Int64())
	assert.Equal(t, int64(5455), s.Remaining().Int64())
}

func TestSupplyMinted(t *testing.T) {
	s := NewSupply(5555)
	s.Observe(big.NewInt(100))

	// lagging node still reports the old total
	assert.Equal(t, int64(103), s.Minted(big.NewInt(100), 3, big.NewInt(100)).Int64())

	// others minted in the meantime
	assert.Equal(t, int64(110), s.Minted(big.NewInt(103), 2, big.NewInt(110)).Int64())

	assert.Equal(t, int64(111), s.Minted(big.NewInt(110), 1, nil).Int64())
	assert.Equal(t, "111/5555", s.Display())
}

func TestSupplyMintedAfterPollSawTokens(t *testing.T) {
	s := NewSupply(5555)
	s.Observe(big.NewInt(100))
	before := s.Current()

	// a poll landed between send and confirmation
	s.Observe(big.NewInt(103))

	assert.Equal(t, int64(103), s.Minted(before, 3, nil).Int64())
	assert.Equal(t, int64(103), s.Minted(before, 3, big.NewInt(103)).Int64())
	assert.Equal(t, int64(5452), s.Remaining().Int64())
}

func TestSupplyProgress(t *testing.T) {
	s := NewSupply(5555)
	s.SetMax(big.NewInt(200))
	s.SetMax(big.NewInt(0))
	s.Observe(big.NewInt(50))

	assert.InDelta(t, 25.0, s.Progress(), 1e-9)
	assert.Equal(t, int64(150), s.Remaining().Int64())

	s.Observe(big.NewInt(250))
	assert.Zero(t, s.Remaining().Sign())
}
