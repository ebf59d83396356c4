package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/quantfolio/portfolio-service/internal/models"
	"github.com/quantfolio/portfolio-service/internal/portfolio"
)

// Producer handles publishing portfolio events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishTradeRecorded publishes a trade recorded event. Decimal
// fields travel as strings so downstream consumers keep full precision.
func (p *Producer) PublishTradeRecorded(ctx context.Context, t *models.TradeEvent) error {
	source := t.Source
	if source == "" {
		source = "api"
	}
	msg := models.TradeEventMessage{
		EventID:   uuid.NewString(),
		EventType: models.EventTypeTradeRecorded,
		Source:    source,
		Timestamp: time.Now(),
		Data: models.TradeEventData{
			OrderRef:     t.OrderRef,
			Symbol:       t.Symbol,
			Kind:         t.Kind,
			Quantity:     t.Quantity.String(),
			PricePerUnit: t.PricePerUnit.String(),
			TotalAmount:  t.TotalAmount.String(),
			Fees:         t.Fees.String(),
			ExecutedAt:   t.ExecutedAt.Format(time.RFC3339),
		},
	}
	if t.OptionDetails != nil {
		msg.Data.OptionAction = t.OptionDetails.Action
		msg.Data.Contracts = t.OptionDetails.Contracts.String()
		msg.Data.PremiumPerContract = t.OptionDetails.PremiumPerContract.String()
	}
	return p.publish(ctx, t.Symbol, msg)
}

// PublishPositionUpdated publishes a position updated event
func (p *Producer) PublishPositionUpdated(ctx context.Context, symbol string) error {
	msg := models.PositionUpdateMessage{
		EventID:   uuid.NewString(),
		EventType: models.EventTypePositionUpdated,
		Symbol:    symbol,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, symbol, msg)
}

// PublishSnapshotComputed publishes a snapshot computed event
func (p *Producer) PublishSnapshotComputed(ctx context.Context, snap portfolio.Snapshot) error {
	date := snap.Date.Format("2006-01-02")
	msg := models.SnapshotMessage{
		EventID:     uuid.NewString(),
		EventType:   models.EventTypeSnapshotComputed,
		Date:        date,
		TotalValue:  snap.TotalValue.String(),
		TotalReturn: snap.TotalReturn.String(),
		Timestamp:   time.Now(),
	}
	return p.publish(ctx, date, msg)
}

func (p *Producer) publish(ctx context.Context, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
