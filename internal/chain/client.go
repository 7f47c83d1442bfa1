// Package chain talks JSON-RPC to a node over websocket: raw calls,
// subscriptions, and typed state reads on top of them.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config configures websocket client behavior.
type Config struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// CallTimeout bounds a single request/response round trip.
	CallTimeout time.Duration
}

// DefaultConfig returns default websocket configuration.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		CallTimeout:      30 * time.Second,
	}
}

// Client is a JSON-RPC 2.0 client over one websocket connection. It
// does not reconnect on its own; when the connection drops it fails
// all in-flight calls and closes Disconnected, leaving failover to the
// caller.
type Client struct {
	url    string
	config Config

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to the channel waiting for its response
	pending   map[uint64]chan rpcResult
	pendingMu sync.Mutex

	// subs maps subscription ID to its notification channel
	subs   map[string]chan json.RawMessage
	subsMu sync.RWMutex

	done         chan struct{}
	disconnected chan struct{}
	wg           sync.WaitGroup
}

type rpcResult struct {
	result json.RawMessage
	err    error
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  *rpcSubParams   `json:"params,omitempty"`
}

type rpcSubParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Dial connects to a node endpoint.
func Dial(ctx context.Context, url string, config *Config) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}

	c := &Client{
		url:          url,
		config:       cfg,
		conn:         conn,
		pending:      make(map[uint64]chan rpcResult),
		subs:         make(map[string]chan json.RawMessage),
		done:         make(chan struct{}),
		disconnected: make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// URL returns the endpoint this client dialed.
func (c *Client) URL() string { return c.url }

// Disconnected is closed once the connection is lost or the client is
// closed.
func (c *Client) Disconnected() <-chan struct{} { return c.disconnected }

// Call performs one request/response round trip.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if params == nil {
		params = []any{}
	}

	reqID := c.requestID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: reqID, Method: method, Params: params}

	ch := make(chan rpcResult, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = ch
	c.pendingMu.Unlock()

	c.connMu.Lock()
	conn := c.conn
	if conn == nil {
		c.connMu.Unlock()
		c.dropPending(reqID)
		return nil, ErrNotConnected
	}
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := conn.WriteJSON(req)
	c.connMu.Unlock()
	if err != nil {
		c.dropPending(reqID)
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("%s: %w", method, res.err)
		}
		return res.result, nil
	case <-time.After(c.config.CallTimeout):
		c.dropPending(reqID)
		return nil, fmt.Errorf("%s: call timeout", method)
	case <-ctx.Done():
		c.dropPending(reqID)
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Ping checks node liveness with a system_health round trip.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, "system_health")
	return err
}

// Subscribe opens a node-side subscription and streams its
// notifications. The returned cancel func unsubscribes and closes the
// channel; it must be called exactly once.
func (c *Client) Subscribe(ctx context.Context, subMethod, unsubMethod string, params ...any) (<-chan json.RawMessage, func(), error) {
	raw, err := c.Call(ctx, subMethod, params...)
	if err != nil {
		return nil, nil, err
	}
	subID, err := subscriptionID(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", subMethod, err)
	}

	ch := make(chan json.RawMessage, 64)
	c.subsMu.Lock()
	c.subs[subID] = ch
	c.subsMu.Unlock()

	cancel := func() {
		c.subsMu.Lock()
		if _, ok := c.subs[subID]; ok {
			delete(c.subs, subID)
			close(ch)
		}
		c.subsMu.Unlock()

		unsubCtx, unsubCancel := context.WithTimeout(context.Background(), c.config.CallTimeout)
		defer unsubCancel()
		c.Call(unsubCtx, unsubMethod, subID)
	}
	return ch, cancel, nil
}

// Close shuts the client down and fails everything in flight.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.failAll(ErrClosed)
	c.closeSubs()
	c.wg.Wait()
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				// Connection lost: fail in-flight calls and signal the
				// owner so it can fail over.
				c.connMu.Lock()
				if c.conn != nil {
					c.conn.Close()
					c.conn = nil
				}
				c.connMu.Unlock()
				c.failAll(ErrNotConnected)
				c.closeSubs()
			}
			select {
			case <-c.disconnected:
			default:
				close(c.disconnected)
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message []byte) {
	var resp rpcResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return
	}

	// Subscription notification.
	if resp.Params != nil && resp.Method != "" {
		subID, err := subscriptionID(resp.Params.Subscription)
		if err != nil {
			return
		}
		c.subsMu.RLock()
		ch, ok := c.subs[subID]
		c.subsMu.RUnlock()
		if ok {
			select {
			case ch <- resp.Params.Result:
			default:
				// Slow consumer: drop rather than stall the reader.
			}
		}
		return
	}

	// Request/response pair.
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}
	if resp.Error != nil {
		ch <- rpcResult{err: resp.Error}
		return
	}
	ch <- rpcResult{result: resp.Result}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

func (c *Client) dropPending(reqID uint64) {
	c.pendingMu.Lock()
	delete(c.pending, reqID)
	c.pendingMu.Unlock()
}

func (c *Client) failAll(err error) {
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		ch <- rpcResult{err: err}
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

func (c *Client) closeSubs() {
	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()
}

// subscriptionID normalizes a subscription id that nodes report either
// as a JSON string or as a number.
func subscriptionID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	return "", fmt.Errorf("unrecognized subscription id %s", raw)
}
