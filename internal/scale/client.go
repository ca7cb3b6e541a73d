package scale

import (
	"context"
	"time"

	"weighbridge-backend/internal/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client reads the indicator's WebSocket feed into a Hub and reconnects with
// exponential backoff whenever the connection drops.
type Client struct {
	url          string
	reconnectMin time.Duration
	reconnectMax time.Duration
	hub          *Hub
	dialer       *websocket.Dialer
	logger       *zap.Logger
}

func NewClient(url string, reconnectMin, reconnectMax time.Duration, hub *Hub, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:          url,
		reconnectMin: reconnectMin,
		reconnectMax: reconnectMax,
		hub:          hub,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	backoff := c.reconnectMin
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if attempt > 0 {
			metrics.ScaleReconnects.Inc()
		}

		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = c.reconnectMin
		}
		c.logger.Warn("indicator connection lost",
			zap.String("url", c.url),
			zap.Error(err),
			zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.reconnectMax {
			backoff = c.reconnectMax
		}
	}
}

// session reads one connection until it fails. connected reports whether the dial succeeded.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	c.hub.SetConnected(true)
	defer c.hub.SetConnected(false)
	c.logger.Info("indicator connected", zap.String("url", c.url))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		kg, err := ParseMessage(data)
		if err != nil {
			metrics.ScaleMessagesDropped.Inc()
			c.logger.Debug("dropping indicator message", zap.Error(err))
			continue
		}
		c.hub.Publish(Reading{WeightKg: kg, ReceivedAt: time.Now()})
	}
}
