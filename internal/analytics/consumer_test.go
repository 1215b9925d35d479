package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/events"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader serves queued messages and then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	fetchErr  error
	fetches   int
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	f.fetches++
	if f.fetchErr != nil {
		f.mu.Unlock()
		return kafka.Message{}, f.fetchErr
	}
	if len(f.messages) == 0 {
		f.mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.messages[0]
	f.messages = f.messages[1:]
	f.mu.Unlock()
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func (f *fakeReader) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func orderPlacedMessage(t *testing.T, event events.OrderPlaced) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{
		Key:     []byte(event.OrderNumber),
		Value:   payload,
		Headers: []kafka.Header{{Key: events.HeaderEventType, Value: []byte(events.EventTypeOrderPlaced)}},
	}
}

func sampleEvent() events.OrderPlaced {
	return events.OrderPlaced{
		OrderNumber: "ORD1",
		CustomerID:  "c1",
		Items: []events.OrderPlacedItem{
			{ProductID: "p1", TraderID: "t1", Quantity: 2, Price: 10, CarbonEmission: 1.5},
			{ProductID: "p2", TraderID: "t2", Quantity: 1, Price: 5, CarbonEmission: 0.5},
		},
		PlacedAt: time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestSalesFromEvent(t *testing.T) {
	sales := SalesFromEvent(sampleEvent())

	require.Len(t, sales, 2)
	assert.Equal(t, domain.SaleRecord{
		OrderNumber: "ORD1", TraderID: "t1", ProductID: "p1", Quantity: 2, Revenue: 20, CarbonEmission: 3,
		Date: time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
	}, sales[0])
	assert.Equal(t, "t2", sales[1].TraderID)
	assert.Equal(t, 5.0, sales[1].Revenue)
}

func TestSalesFromEvent_MergesRepeatedProduct(t *testing.T) {
	event := sampleEvent()
	event.Items = append(event.Items, events.OrderPlacedItem{ProductID: "p1", TraderID: "t1", Quantity: 1, Price: 10, CarbonEmission: 1.5})
	event.Items = append(event.Items, events.OrderPlacedItem{ProductID: "p3", TraderID: "t1", Quantity: 0, Price: 10})

	sales := SalesFromEvent(event)

	require.Len(t, sales, 2)
	assert.Equal(t, 3, sales[0].Quantity)
	assert.Equal(t, 30.0, sales[0].Revenue)
	assert.Equal(t, 4.5, sales[0].CarbonEmission)
}

func TestSalesConsumer_RecordsSales(t *testing.T) {
	repo := newMemoryRepository()
	reader := &fakeReader{messages: []kafka.Message{orderPlacedMessage(t, sampleEvent())}}
	c := &SalesConsumer{recorder: repo, reader: reader, log: zap.NewNop()}

	require.NoError(t, c.processMessage(context.Background()))

	assert.Len(t, repo.sales, 2)
	require.Len(t, reader.committed, 1)
	assert.Equal(t, []byte("ORD1"), reader.committed[0].Key)
}

func TestSalesConsumer_RedeliveryIsIdempotent(t *testing.T) {
	repo := newMemoryRepository()
	msg := orderPlacedMessage(t, sampleEvent())
	reader := &fakeReader{messages: []kafka.Message{msg, msg}}
	c := &SalesConsumer{recorder: repo, reader: reader, log: zap.NewNop()}

	require.NoError(t, c.processMessage(context.Background()))
	require.NoError(t, c.processMessage(context.Background()))

	assert.Len(t, repo.sales, 2)
}

func TestSalesConsumer_SkipsMalformedAndForeignMessages(t *testing.T) {
	repo := newMemoryRepository()
	reader := &fakeReader{messages: []kafka.Message{
		{Key: []byte("x"), Value: []byte("{not json")},
		{Key: []byte("y"), Value: []byte(`{}`), Headers: []kafka.Header{{Key: events.HeaderEventType, Value: []byte("OrderCancelled")}}},
	}}
	c := &SalesConsumer{recorder: repo, reader: reader, log: zap.NewNop()}

	assert.NoError(t, c.processMessage(context.Background()))
	assert.NoError(t, c.processMessage(context.Background()))
	assert.Empty(t, repo.sales)
	assert.Len(t, reader.committed, 2)
}

func TestSalesConsumer_RecorderError(t *testing.T) {
	repo := newMemoryRepository()
	repo.salesErr = errors.New("mongo down")
	reader := &fakeReader{messages: []kafka.Message{orderPlacedMessage(t, sampleEvent())}}
	c := &SalesConsumer{recorder: repo, reader: reader, log: zap.NewNop()}

	err := c.processMessage(context.Background())

	assert.ErrorContains(t, err, "ORD1")
	assert.ErrorContains(t, err, "mongo down")
	assert.Empty(t, reader.committed, "offset must not be committed before sales are stored")
}

func TestSalesConsumer_RetriesUncommittedMessage(t *testing.T) {
	repo := newMemoryRepository()
	repo.salesErr = errors.New("mongo down")
	reader := &fakeReader{messages: []kafka.Message{orderPlacedMessage(t, sampleEvent())}}
	c := &SalesConsumer{recorder: repo, reader: reader, log: zap.NewNop()}

	require.Error(t, c.processMessage(context.Background()))
	require.Error(t, c.processMessage(context.Background()))

	repo.salesErr = nil
	require.NoError(t, c.processMessage(context.Background()))

	assert.Len(t, repo.sales, 2)
	assert.Len(t, reader.committed, 1)
	assert.Equal(t, 1, reader.fetchCount(), "the failed message is retried without fetching again")
}

func TestSalesConsumer_RunWaitsAfterFetchError(t *testing.T) {
	reader := &fakeReader{fetchErr: errors.New("broker unreachable")}
	c := &SalesConsumer{recorder: newMemoryRepository(), reader: reader, log: zap.NewNop(), retryDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	assert.LessOrEqual(t, reader.fetchCount(), 4)
	assert.GreaterOrEqual(t, reader.fetchCount(), 1)
}

func TestSalesConsumer_RunStopsOnCancel(t *testing.T) {
	repo := newMemoryRepository()
	reader := &fakeReader{messages: []kafka.Message{orderPlacedMessage(t, sampleEvent())}}
	c := &SalesConsumer{recorder: repo, reader: reader, log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.sales) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}

	c.Close()
	assert.True(t, reader.closed)
}

func TestLedgerPublisher_RecordsSales(t *testing.T) {
	repo := newMemoryRepository()
	var p events.Publisher = LedgerPublisher{Recorder: repo}

	require.NoError(t, p.PublishOrderPlaced(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())

	sales, err := repo.ListSales(context.Background(), "t1", Range{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 20.0, sales[0].Revenue)
}
