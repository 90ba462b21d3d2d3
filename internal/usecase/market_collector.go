package usecase

import (
	"context"

	"CoinMentor/internal/domain/models"
	drepo "CoinMentor/internal/domain/repository"
	mid "CoinMentor/internal/middleware"
)

// MarketCollector pulls trades from the exchange stream and feeds them
// through the realtime pipeline.
type MarketCollector struct {
	stream  drepo.MarketStream
	proc    *TradeProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

// NewMarketCollector creates a new MarketCollector instance.
func NewMarketCollector(stream drepo.MarketStream, proc *TradeProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *MarketCollector {
	return &MarketCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *MarketCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *MarketCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	trCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, trCh, errCh)
	return nil
}

// consume pumps the stream channels into the pipeline. The stream's
// read goroutine closes both channels after a failure, so any error or
// channel close means the old Read is dead: reconnect and swap in the
// fresh channel pair, never keep selecting on the closed one.
func (c *MarketCollector) consume(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err == nil {
				continue
			}
			if ok {
				c.metrics.RecordError("stream")
			}
			if trCh, errCh = c.resume(ctx); trCh == nil {
				return
			}
		case t, ok := <-trCh:
			if !ok {
				if trCh, errCh = c.resume(ctx); trCh == nil {
					return
				}
				continue
			}
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.proc.Process(ctx, t)
			}
			c.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
	}
}

// resume reconnects the stream and starts a new read loop, retrying
// until it succeeds or the context ends. Returns nil channels only on
// context cancellation.
func (c *MarketCollector) resume(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			continue
		}
		if err := c.stream.Subscribe(ctx); err != nil {
			c.metrics.RecordError("stream_subscribe")
			continue
		}
		trCh, errCh := c.stream.Read(ctx)
		return trCh, errCh
	}
}

// Processor returns the underlying TradeProcessor for lifecycle management.
func (c *MarketCollector) Processor() *TradeProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *MarketCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
