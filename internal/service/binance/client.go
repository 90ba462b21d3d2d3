package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"CoinMentor/internal/domain/models"
	drepo "CoinMentor/internal/domain/repository"
	"CoinMentor/pkg/util"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by the Binance trade stream.
// It connects to the combined-stream endpoint so one socket covers all
// configured symbols.
type Client struct {
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new Binance MarketStream.
func New(websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	return &Client{
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// streamPath builds the combined stream path, e.g.
// /stream?streams=btcusdt@trade/ethusdt@trade
func (c *Client) streamPath() string {
	streams := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		streams[i] = util.StreamSymbol(s) + "@trade"
	}
	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimRight(c.websocketURL, "/"), strings.Join(streams, "/"))
}

// Connect establishes the WebSocket connection. Binance subscribes via
// the URL, so Subscribe is a no-op after a successful connect.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.streamPath(), nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("binance: connected symbols=%v", c.symbols)
	return nil
}

// Subscribe verifies the connection is live. Stream selection happens
// in the connect URL.
func (c *Client) Subscribe(_ context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("binance not connected")
	}
	return nil
}

// bnTrade is a trade event payload. Prices and quantities arrive as
// strings on the Binance wire format.
type bnTrade struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"` // ms
}

type bnEnvelope struct {
	Stream string  `json:"stream"`
	Data   bnTrade `json:"data"`
}

// Read streams Trade events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PongMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(trades)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("binance conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}
				var env bnEnvelope
				if err := json.Unmarshal(b, &env); err != nil {
					// ignore non-trade frames
					continue
				}
				if env.Data.EventType != "trade" {
					continue
				}
				trade, err := env.Data.toTrade()
				if err != nil {
					continue
				}
				select {
				case trades <- trade:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return trades, errs
}

func (t bnTrade) toTrade() (*models.Trade, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	qty, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	return &models.Trade{
		Symbol:    t.Symbol,
		Price:     price,
		Volume:    qty,
		Timestamp: t.TradeTime / 1000,
	}, nil
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	return c.Connect(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
