// Package kafka ingests trade events published by broker integrations
// and publishes the service's own portfolio events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/metrics"
	"github.com/quantfolio/portfolio-service/internal/models"
)

// TradeStore defines the persistence surface the consumer stores
// ingested trades through.
type TradeStore interface {
	CreateTradeEvent(t *models.TradeEvent) error
	TradeEventExistsByOrderRef(orderRef, source string) (bool, error)
}

// IngestNotifier is told about each stored trade so live views can
// refresh. A nil notifier is fine.
type IngestNotifier interface {
	TradeIngested(t *models.TradeEvent)
}

// Consumer reads TRADE_RECORDED events from Kafka and stores them as
// trade events. Duplicate deliveries are detected by (order_ref,
// source); numeric and timestamp fields are parsed defensively because
// upstream producers vary in quality.
type Consumer struct {
	reader   *kafka.Reader
	store    TradeStore
	notifier IngestNotifier
}

// NewConsumer creates a new Kafka consumer for trade events
func NewConsumer(brokers []string, topic, groupID string, store TradeStore, notifier IngestNotifier) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		store:    store,
		notifier: notifier,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(msg); err != nil {
				log.Printf("Error processing message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	var event models.TradeEventMessage
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	// Only process TRADE_RECORDED events
	if event.EventType != models.EventTypeTradeRecorded {
		return nil
	}

	// Check for duplicate delivery (idempotency)
	if event.Data.OrderRef != "" {
		exists, err := c.store.TradeEventExistsByOrderRef(event.Data.OrderRef, event.Source)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate trade: %w", err)
		}
		if exists {
			log.Printf("Trade %s from %s already exists, skipping", event.Data.OrderRef, event.Source)
			return nil
		}
	}

	trade, err := c.convertMessage(event)
	if err != nil {
		return fmt.Errorf("failed to convert trade event: %w", err)
	}

	if err := c.store.CreateTradeEvent(trade); err != nil {
		return fmt.Errorf("failed to save trade event: %w", err)
	}

	metrics.TradesIngested.WithLabelValues(trade.Source).Inc()
	log.Printf("Saved trade event: %s %s %s @ %s (order_ref: %s)",
		trade.Kind, trade.Quantity, trade.Symbol, trade.PricePerUnit, trade.OrderRef)

	if c.notifier != nil {
		c.notifier.TradeIngested(trade)
	}
	return nil
}

// convertMessage maps a TradeEventMessage to a TradeEvent model.
// Numeric fields degrade to zero on parse failure rather than dropping
// the whole trade; the kind and option action must be valid.
func (c *Consumer) convertMessage(event models.TradeEventMessage) (*models.TradeEvent, error) {
	data := event.Data

	kind := strings.ToUpper(strings.TrimSpace(data.Kind))
	if !models.ValidTradeKind(kind) {
		return nil, fmt.Errorf("invalid trade kind: %s", data.Kind)
	}

	quantity := parseDecimal(data.Quantity)
	price := parseDecimal(data.PricePerUnit)
	fees := parseDecimal(data.Fees)

	total := parseDecimal(data.TotalAmount)
	if total.IsZero() {
		// Fall back to quantity * price
		total = quantity.Mul(price)
	}

	trade := &models.TradeEvent{
		OrderRef:     data.OrderRef,
		Source:       event.Source,
		Symbol:       strings.ToUpper(strings.TrimSpace(data.Symbol)),
		Kind:         kind,
		Quantity:     quantity,
		PricePerUnit: price,
		TotalAmount:  total,
		Fees:         fees,
		ExecutedAt:   parseTimestamp(data.ExecutedAt),
	}

	if data.OptionAction != "" {
		action := strings.ToUpper(strings.TrimSpace(data.OptionAction))
		if !models.ValidOptionAction(action) {
			return nil, fmt.Errorf("invalid option action: %s", data.OptionAction)
		}
		trade.OptionDetails = &models.OptionDetails{
			Action:             action,
			Contracts:          parseDecimal(data.Contracts),
			PremiumPerContract: parseDecimal(data.PremiumPerContract),
		}
	}

	return trade, nil
}

// parseDecimal converts a wire string to a decimal, degrading to zero
// on malformed input.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// parseTimestamp tries RFC3339, then the bare layout some producers
// send, then falls back to now.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts
	}
	return time.Now()
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
