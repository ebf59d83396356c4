package models

import "time"

// Kafka event type constants
const (
	EventTypeTradeRecorded    = "TRADE_RECORDED"
	EventTypePositionUpdated  = "POSITION_UPDATED"
	EventTypeSnapshotComputed = "SNAPSHOT_COMPUTED"
)

// TradeEventMessage is the Kafka envelope for an incoming trade. Numeric
// fields travel as strings so upstream producers in other languages do
// not lose precision on the wire.
type TradeEventMessage struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Data      TradeEventData `json:"data"`
}

// TradeEventData is the payload of a TRADE_RECORDED message.
type TradeEventData struct {
	OrderRef           string `json:"order_ref"`
	Symbol             string `json:"symbol"`
	Kind               string `json:"kind"`
	Quantity           string `json:"quantity"`
	PricePerUnit       string `json:"price_per_unit"`
	TotalAmount        string `json:"total_amount"`
	Fees               string `json:"fees"`
	OptionAction       string `json:"option_action,omitempty"`
	Contracts          string `json:"contracts,omitempty"`
	PremiumPerContract string `json:"premium_per_contract,omitempty"`
	ExecutedAt         string `json:"executed_at"`
}

// PositionUpdateMessage announces that a symbol's position state changed
// and consumers should recompute their views.
type PositionUpdateMessage struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotMessage announces a freshly computed daily portfolio snapshot.
type SnapshotMessage struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	Date        string    `json:"date"`
	TotalValue  string    `json:"total_value"`
	TotalReturn string    `json:"total_return"`
	Timestamp   time.Time `json:"timestamp"`
}
