package wsfeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// Client maintains a single WebSocket connection to a live fill feed and
// delivers raw fills to the pipeline. Subscriptions are per account and
// replayed on reconnect.
type Client struct {
	url             string
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	fillChan        chan *types.RawFill
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	subscribed      map[string]bool // tracks subscribed account IDs
	connected       atomic.Bool
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64 // Unix timestamp of connection start
}

// Config holds fill feed client configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	FillBufferSize        int
	Logger                *zap.Logger
}

// subscribeRequest is the wire shape of one feed subscription.
type subscribeRequest struct {
	Method       string       `json:"method"`
	Subscription subscription `json:"subscription"`
}

type subscription struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// fillFrame is the wire shape of one feed message. Snapshot frames replay
// historical fills on subscribe; the client forwards both.
type fillFrame struct {
	Channel string `json:"channel"`
	Data    struct {
		User       string           `json:"user"`
		Fills      []*types.RawFill `json:"fills"`
		IsSnapshot bool             `json:"isSnapshot"`
	} `json:"data"`
}

// New creates a new fill feed client.
func New(cfg Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Client{
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		fillChan:     make(chan *types.RawFill, cfg.FillBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]bool),
	}
}

// Start connects the client and launches its read, ping, and reconnect
// loops.
func (c *Client) Start() error {
	c.logger.Info("fill-feed-starting", zap.String("url", c.url))

	err := c.connect(c.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(3)
	go c.readLoop()
	go c.pingLoop()
	go c.reconnectLoop()

	return nil
}

// connect establishes a WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.DialTimeout,
	}

	c.logger.Info("connecting-to-fill-feed", zap.String("url", c.url))

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		c.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	now := time.Now()
	c.connected.Store(true)
	c.lastPongTime.Store(now.Unix())
	c.connectionStart.Store(now.Unix())
	ActiveConnections.Set(1)

	c.logger.Info("fill-feed-connected")

	return nil
}

// Subscribe subscribes to the fill streams of a list of accounts.
func (c *Client) Subscribe(ctx context.Context, accountIDs []string) error {
	if len(accountIDs) == 0 {
		return nil
	}

	c.mu.Lock()

	newAccounts := make([]string, 0, len(accountIDs))
	for _, accountID := range accountIDs {
		if !c.subscribed[accountID] {
			newAccounts = append(newAccounts, accountID)
			c.subscribed[accountID] = true
		}
	}

	if len(newAccounts) == 0 {
		c.mu.Unlock()
		c.logger.Debug("all-accounts-already-subscribed")
		return nil
	}

	totalSubscribed := len(c.subscribed)
	c.mu.Unlock()

	// Network I/O WITHOUT holding the lock
	err := c.writeSubscriptions(newAccounts)
	if err != nil {
		// Rollback subscription state on failure
		c.mu.Lock()
		for _, accountID := range newAccounts {
			delete(c.subscribed, accountID)
		}
		totalSubscribed = len(c.subscribed)
		c.mu.Unlock()

		SubscriptionCount.Set(float64(totalSubscribed))
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(totalSubscribed))

	c.logger.Info("subscribed-to-accounts",
		zap.Int("new-count", len(newAccounts)),
		zap.Int("total-count", totalSubscribed))

	return nil
}

// writeSubscriptions sends one subscribe frame per account. The feed
// protocol has no batch form.
func (c *Client) writeSubscriptions(accountIDs []string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	for _, accountID := range accountIDs {
		msg := subscribeRequest{
			Method: "subscribe",
			Subscription: subscription{
				Type: "userFills",
				User: accountID,
			},
		}
		err := conn.WriteJSON(msg)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", accountID, err)
		}
	}

	return nil
}

// Fills returns the channel of incoming raw fills.
func (c *Client) Fills() <-chan *types.RawFill {
	return c.fillChan
}

// IsConnected reports whether the client currently holds a live
// connection.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// readLoop reads frames from the WebSocket and forwards fills.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}

			c.logger.Warn("read-error", zap.Error(err))

			startTime := c.connectionStart.Load()
			if startTime > 0 {
				duration := time.Since(time.Unix(startTime, 0)).Seconds()
				ConnectionDuration.Observe(duration)
			}

			c.connected.Store(false)
			ActiveConnections.Set(0)
			continue
		}

		c.handleMessage(message)
	}
}

// handleMessage parses one frame and forwards its fills.
func (c *Client) handleMessage(message []byte) {
	var frame fillFrame
	err := json.Unmarshal(message, &frame)
	if err != nil {
		preview := string(message)
		if len(preview) > 100 {
			preview = preview[:100]
		}
		c.logger.Debug("feed-unparseable-message",
			zap.Error(err),
			zap.Int("bytes", len(message)),
			zap.String("preview", preview))
		return
	}

	if frame.Channel != "userFills" {
		// Subscription acks, heartbeats, and other control frames.
		c.logger.Debug("feed-control-message",
			zap.String("channel", frame.Channel),
			zap.Int("bytes", len(message)))
		return
	}

	FramesReceivedTotal.WithLabelValues(frameKind(frame.Data.IsSnapshot)).Inc()

	for _, fill := range frame.Data.Fills {
		if fill.User == "" {
			fill.User = frame.Data.User
		}

		select {
		case c.fillChan <- fill:
			FillsReceivedTotal.Inc()
		default:
			FillsDroppedTotal.Inc()
			c.logger.Warn("fill-channel-full",
				zap.String("account", fill.User),
				zap.String("coin", fill.Coin))
		}
	}
}

func frameKind(snapshot bool) string {
	if snapshot {
		return "snapshot"
	}
	return "stream"
}

// pingLoop sends pings and watches for stale pongs.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.connected.Load() {
				continue
			}

			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.PingInterval))
			if err != nil {
				c.logger.Warn("ping-failed", zap.Error(err))
				c.connected.Store(false)
				ActiveConnections.Set(0)
				continue
			}

			lastPong := time.Unix(c.lastPongTime.Load(), 0)
			if time.Since(lastPong) > c.config.PongTimeout {
				c.logger.Warn("pong-timeout",
					zap.Time("last-pong", lastPong),
					zap.Duration("timeout", c.config.PongTimeout))
				c.connected.Store(false)
				ActiveConnections.Set(0)
				_ = conn.Close()
			}
		}
	}
}

// reconnectLoop watches the connected flag and re-establishes dropped
// connections with exponential backoff, replaying subscriptions.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.connected.Load() {
				continue
			}

			err := c.reconnectMgr.Reconnect(c.ctx, c.connect)
			if err != nil {
				return
			}

			c.resubscribe()
		}
	}
}

// resubscribe replays all account subscriptions after a reconnect.
func (c *Client) resubscribe() {
	c.mu.RLock()
	accounts := make([]string, 0, len(c.subscribed))
	for accountID := range c.subscribed {
		accounts = append(accounts, accountID)
	}
	c.mu.RUnlock()

	if len(accounts) == 0 {
		return
	}

	err := c.writeSubscriptions(accounts)
	if err != nil {
		c.logger.Warn("resubscribe-failed", zap.Error(err))
		return
	}

	c.logger.Info("resubscribed-after-reconnect", zap.Int("count", len(accounts)))
}

// Stop shuts the client down and closes the fill channel.
func (c *Client) Stop() {
	c.logger.Info("fill-feed-stopping")

	c.cancel()

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
	close(c.fillChan)

	c.connected.Store(false)
	ActiveConnections.Set(0)

	c.logger.Info("fill-feed-stopped")
}
