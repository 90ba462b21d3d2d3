package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinMentor/internal/domain/models"
)

type fakeStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	readCh     chan struct{} // signals each Read call

	trCh  chan *models.Trade
	errCh chan error
}

func (f *fakeStream) Connect(ctx context.Context) error   { return nil }
func (f *fakeStream) Subscribe(ctx context.Context) error { return nil }
func (f *fakeStream) Close() error                        { return nil }
func (f *fakeStream) IsConnected() bool                   { return true }

func (f *fakeStream) Reconnect(ctx context.Context) error {
	f.mu.Lock()
	f.reconnects++
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	f.mu.Lock()
	f.reads++
	f.trCh = make(chan *models.Trade, 8)
	f.errCh = make(chan error, 1)
	tr, er := f.trCh, f.errCh
	f.mu.Unlock()
	f.readCh <- struct{}{}
	return tr, er
}

func (f *fakeStream) channels() (chan *models.Trade, chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trCh, f.errCh
}

func (f *fakeStream) counts() (reads, reconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.reconnects
}

// A stream failure closes the read channels; the collector must come
// back up on the channels of the reconnected stream, not keep waiting
// on the dead ones.
func TestCollectorResumesReadingAfterReconnect(t *testing.T) {
	stream := &fakeStream{readCh: make(chan struct{}, 4)}
	storage := &fakeStorage{stored: make(chan *models.Trade, 8)}
	proc := NewTradeProcessor(nil, storage, nullMetrics{}, "clickhouse", 0, 0)
	collector := NewMarketCollector(stream, proc, nullMetrics{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, collector.Start(ctx))

	select {
	case <-stream.readCh:
	case <-time.After(2 * time.Second):
		t.Fatal("initial Read never happened")
	}

	// Simulate the read goroutine dying: one error, then both channels close.
	trCh, errCh := stream.channels()
	errCh <- errors.New("connection reset")
	close(errCh)
	close(trCh)

	select {
	case <-stream.readCh:
	case <-time.After(2 * time.Second):
		reads, reconnects := stream.counts()
		t.Fatalf("stream abandoned after failure: Read called %d time(s), reconnects=%d", reads, reconnects)
	}

	// Trades on the fresh channels must flow through to storage.
	trCh, _ = stream.channels()
	trCh <- &models.Trade{Symbol: "BTCUSDT", Price: 60000, Volume: 0.5, Timestamp: time.Now().Unix()}

	select {
	case got := <-storage.stored:
		assert.Equal(t, "BTCUSDT", got.Symbol)
		assert.Equal(t, 60000.0, got.Price)
	case <-time.After(2 * time.Second):
		t.Fatal("trade after reconnect never reached storage")
	}

	reads, reconnects := stream.counts()
	assert.Equal(t, 2, reads)
	assert.Equal(t, 1, reconnects)
}

// Cancellation during an outage must end the consume loop instead of
// retrying forever.
func TestCollectorStopsOnContextDuringOutage(t *testing.T) {
	stream := &fakeStream{readCh: make(chan struct{}, 4)}
	storage := &fakeStorage{}
	proc := NewTradeProcessor(nil, storage, nullMetrics{}, "clickhouse", 0, 0)
	collector := NewMarketCollector(stream, proc, nullMetrics{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, collector.Start(ctx))
	<-stream.readCh

	cancel()
	trCh, errCh := stream.channels()
	close(errCh)
	close(trCh)

	// Give the loop a moment; a reconnect after cancel would show up here.
	time.Sleep(50 * time.Millisecond)
	reads, _ := stream.counts()
	assert.Equal(t, 1, reads, "no new Read after context cancellation")
}
