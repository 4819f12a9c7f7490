package metrics

import "time"

// Recorder receives workflow events. Labels use the keys "stage" and "kind".
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
	SetGauge(name string, value float64)
}

// Event names.
const (
	EventConnected     = "wallet_connected"
	EventChainSwitched = "chain_switched"
	EventTxSubmitted   = "tx_submitted"
	EventTxConfirmed   = "tx_confirmed"
	EventTxFailed      = "tx_failed"
	EventSupplyPolled  = "supply_polled"
	EventSchemaServed  = "schema_served"

	OpConnect = "connect"
	OpApprove = "approve"
	OpMint    = "mint"

	GaugeTotalSupply = "total_supply"
)
