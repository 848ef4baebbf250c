package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"
)

// Config holds the live trade stream settings.
type Config struct {
	APIKey         string
	WebsocketURL   string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	BufferSize     int
}

// Client implements a MarketStream backed by the Finnhub WebSocket.
type Client struct {
	cfg    Config
	logger *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

var _ drepo.MarketStream = (*Client)(nil)

// New creates a new Finnhub MarketStream.
func New(cfg Config, lgr *applogger.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &Client{cfg: cfg, logger: lgr.With(applogger.String("component", "finnhub"))}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.cfg.WebsocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("Connected")
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("finnhub not connected")
	}
	for _, s := range c.cfg.Symbols {
		if err := c.conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.logger.Info("Subscribed", applogger.Int("symbols", len(c.cfg.Symbols)))
	return nil
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// decodeTrades returns the trades carried by a frame; pings and other frame types yield none.
func decodeTrades(b []byte) ([]*models.Trade, error) {
	var m fhMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m.Type != "trade" {
		return nil, nil
	}
	out := make([]*models.Trade, 0, len(m.Data))
	for _, d := range m.Data {
		if d.S == "" || d.P <= 0 {
			continue
		}
		out = append(out, &models.Trade{Symbol: d.S, Timestamp: d.T, Price: d.P, Volume: d.V})
	}
	return out, nil
}

// Read streams Trade events and errors until ctx ends or the connection fails.
func (c *Client) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, c.cfg.BufferSize)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	readCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-readCtx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				if conn != nil {
					_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		defer cancel()
		defer close(trades)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("finnhub conn nil")
			return
		}
		dropped := 0
		for {
			if readCtx.Err() != nil {
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				if readCtx.Err() == nil {
					errs <- fmt.Errorf("finnhub read: %w", err)
				}
				return
			}
			batch, err := decodeTrades(b)
			if err != nil {
				continue
			}
			for _, t := range batch {
				select {
				case trades <- t:
				default:
					dropped++
					if dropped%1000 == 1 {
						c.logger.Warn("Trade buffer full, dropping", applogger.Int("dropped", dropped))
					}
				}
			}
		}
	}()

	return trades, errs
}

// Reconnect closes, waits the reconnect delay and connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.ReconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
