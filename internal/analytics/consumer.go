package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/events"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const consumerGroup = "healthy-market-analytics"

type SalesRecorder interface {
	RecordSales(ctx context.Context, sales []domain.SaleRecord) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const defaultRetryDelay = time.Second

// SalesConsumer turns order-placed events into sales ledger lines.
// Offsets are committed only after the sales are stored.
type SalesConsumer struct {
	recorder   SalesRecorder
	reader     messageReader
	log        *zap.Logger
	retryDelay time.Duration

	// pending is a fetched message whose sales are not stored yet.
	pending *kafka.Message
}

func NewSalesConsumer(recorder SalesRecorder, log *zap.Logger, brokers ...string) *SalesConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    events.TopicOrderPlaced,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return &SalesConsumer{recorder: recorder, reader: reader, log: log, retryDelay: defaultRetryDelay}
}

func (c *SalesConsumer) Run(ctx context.Context) {
	for ctx.Err() == nil {
		err := c.processMessage(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			continue
		}
		c.log.Error("failed to process order placed message", zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *SalesConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing kafka reader", zap.Error(err))
	}
}

// processMessage handles the pending message, fetching a new one when there
// is none. A message that fails to store stays pending and is retried.
func (c *SalesConsumer) processMessage(ctx context.Context) error {
	if c.pending == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		c.pending = &m
	}

	m := *c.pending
	if err := c.handle(ctx, m); err != nil {
		return err
	}
	c.pending = nil

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("commit offset %d: %w", m.Offset, err)
	}
	return nil
}

func (c *SalesConsumer) handle(ctx context.Context, m kafka.Message) error {
	if !isOrderPlaced(m) {
		return nil
	}

	var event events.OrderPlaced
	if err := json.Unmarshal(m.Value, &event); err != nil {
		// poison message, commit it and move on
		c.log.Warn("skipping malformed order placed event", zap.ByteString("key", m.Key), zap.Error(err))
		return nil
	}

	sales := SalesFromEvent(event)
	if err := c.recorder.RecordSales(ctx, sales); err != nil {
		return fmt.Errorf("record sales for order %s: %w", event.OrderNumber, err)
	}

	c.log.Info("sales recorded",
		zap.String("order_number", event.OrderNumber),
		zap.Int("lines", len(sales)))
	return nil
}

func isOrderPlaced(m kafka.Message) bool {
	for _, h := range m.Headers {
		if h.Key == events.HeaderEventType {
			return string(h.Value) == events.EventTypeOrderPlaced
		}
	}
	// untagged messages on the topic are treated as order placed
	return true
}

// SalesFromEvent produces one ledger line per trader and product in the order.
func SalesFromEvent(event events.OrderPlaced) []domain.SaleRecord {
	type key struct{ trader, product string }
	index := make(map[key]int)
	sales := make([]domain.SaleRecord, 0, len(event.Items))

	for _, item := range event.Items {
		if item.Quantity < 1 {
			continue
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		revenue := decimal.NewFromFloat(domain.NonNegative(item.Price)).Mul(qty)
		emission := decimal.NewFromFloat(domain.NonNegative(item.CarbonEmission)).Mul(qty)

		k := key{item.TraderID, item.ProductID}
		if i, ok := index[k]; ok {
			s := &sales[i]
			s.Quantity += item.Quantity
			s.Revenue = decimal.NewFromFloat(s.Revenue).Add(revenue).Round(2).InexactFloat64()
			s.CarbonEmission = decimal.NewFromFloat(s.CarbonEmission).Add(emission).InexactFloat64()
			continue
		}

		index[k] = len(sales)
		sales = append(sales, domain.SaleRecord{
			OrderNumber:    event.OrderNumber,
			TraderID:       item.TraderID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			Revenue:        revenue.Round(2).InexactFloat64(),
			CarbonEmission: emission.InexactFloat64(),
			Date:           event.PlacedAt.UTC(),
		})
	}
	return sales
}

// LedgerPublisher records sales in-process. It stands in for the Kafka
// round trip when no brokers are configured.
type LedgerPublisher struct {
	Recorder SalesRecorder
}

func (p LedgerPublisher) PublishOrderPlaced(ctx context.Context, event events.OrderPlaced) error {
	return p.Recorder.RecordSales(ctx, SalesFromEvent(event))
}

func (LedgerPublisher) Close() error { return nil }
