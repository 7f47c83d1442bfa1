// Package node maintains the node endpoint list and keeps one live
// connection, failing over across endpoints when the current one drops.
package node

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/storage"
)

var (
	// ErrAllNodesFailed means every known endpoint refused a connection.
	ErrAllNodesFailed = errors.New("all nodes failed")
	// ErrInvalidEndpoint means the endpoint URL is not a websocket URL.
	ErrInvalidEndpoint = errors.New("invalid node endpoint")
	// ErrClosed means the manager was shut down.
	ErrClosed = errors.New("node manager closed")
)

// Dialer opens a connection to one endpoint URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is one live node connection; *chain.Client satisfies it.
type Conn interface {
	Ping(ctx context.Context) error
	Disconnected() <-chan struct{}
	Close() error
}

// DefaultDialTimeout bounds one connection attempt during failover.
const DefaultDialTimeout = 15 * time.Second

// Manager owns the endpoint list and the single live connection.
type Manager struct {
	dialer      Dialer
	store       storage.NodeStore
	logger      *log.Logger
	dialTimeout time.Duration

	mu      sync.Mutex
	conn    Conn
	current *domain.NodeEndpoint
	gen     uint64 // invalidates watchers of replaced connections
	closed  bool

	done   chan struct{}
	states chan domain.NodeConnectionState
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDialTimeout bounds each connection attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.dialTimeout = d
		}
	}
}

// NewManager creates a manager and seeds the store with the shipped
// default endpoints, preserving anything already persisted.
func NewManager(ctx context.Context, dialer Dialer, store storage.NodeStore, defaults []*domain.NodeEndpoint, opts ...Option) (*Manager, error) {
	m := &Manager{
		dialer:      dialer,
		store:       store,
		logger:      log.Default(),
		dialTimeout: DefaultDialTimeout,
		done:        make(chan struct{}),
		states:      make(chan domain.NodeConnectionState, 16),
	}
	for _, opt := range opts {
		opt(m)
	}

	known, err := store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	seen := make(map[string]struct{}, len(known))
	for _, n := range known {
		seen[n.URL] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := seen[d.URL]; ok {
			continue
		}
		cp := *d
		cp.IsDefault = true
		if err := store.Upsert(ctx, &cp); err != nil {
			return nil, fmt.Errorf("seed default node %s: %w", d.URL, err)
		}
	}
	return m, nil
}

// States streams connection state changes. Slow consumers lose the
// oldest emission, never the newest.
func (m *Manager) States() <-chan domain.NodeConnectionState { return m.states }

// Current returns the endpoint of the live connection, nil when
// disconnected.
func (m *Manager) Current() *domain.NodeEndpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	cp := *m.current
	return &cp
}

// Conn returns the live connection, nil when disconnected.
func (m *Manager) Conn() Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Connect establishes a connection, starting from the selected
// endpoint and wrapping around the rest of the list until one accepts.
func (m *Manager) Connect(ctx context.Context) error {
	endpoints, err := m.orderedEndpoints(ctx, "")
	if err != nil {
		return err
	}
	return m.connectAny(ctx, endpoints)
}

// SelectNode switches to the given endpoint. The current connection is
// dropped; on failure the remaining endpoints are tried in order.
func (m *Manager) SelectNode(ctx context.Context, url string) error {
	if err := m.store.SetSelected(ctx, url); err != nil {
		return fmt.Errorf("select node: %w", err)
	}
	m.dropConn()

	endpoints, err := m.orderedEndpoints(ctx, url)
	if err != nil {
		return err
	}
	return m.connectAny(ctx, endpoints)
}

// AddCustomNode validates and persists a user-added endpoint.
func (m *Manager) AddCustomNode(ctx context.Context, name, url string) error {
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, url)
	}
	n := &domain.NodeEndpoint{URL: url, Name: name}
	if err := m.store.Upsert(ctx, n); err != nil {
		return fmt.Errorf("add custom node: %w", err)
	}
	return nil
}

// RemoveNode deletes a custom endpoint. Default endpoints cannot be
// removed.
func (m *Manager) RemoveNode(ctx context.Context, url string) error {
	if err := m.store.Delete(ctx, url); err != nil {
		return fmt.Errorf("remove node: %w", err)
	}
	return nil
}

// Close drops the connection and stops the state stream.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.gen++
	conn := m.conn
	m.conn = nil
	m.current = nil
	close(m.done)
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	return nil
}

// orderedEndpoints loads the list and rotates it so the preferred URL
// (or the persisted selection) comes first.
func (m *Manager) orderedEndpoints(ctx context.Context, preferred string) ([]*domain.NodeEndpoint, error) {
	endpoints, err := m.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	if len(endpoints) == 0 {
		return nil, ErrAllNodesFailed
	}

	start := 0
	for i, n := range endpoints {
		if preferred != "" && n.URL == preferred {
			start = i
			break
		}
		if preferred == "" && n.IsSelected {
			start = i
		}
	}
	rotated := make([]*domain.NodeEndpoint, 0, len(endpoints))
	for i := range endpoints {
		rotated = append(rotated, endpoints[(start+i)%len(endpoints)])
	}
	return rotated, nil
}

// connectAny tries each endpoint in order until one accepts.
func (m *Manager) connectAny(ctx context.Context, endpoints []*domain.NodeEndpoint) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()

	for _, ep := range endpoints {
		m.emit(domain.NodeConnectionState{Phase: domain.Connecting, Endpoint: ep})

		dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
		conn, err := m.dialer.Dial(dialCtx, ep.URL)
		cancel()
		if err != nil {
			m.logger.Printf("[node] %s unreachable: %v", ep.URL, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			conn.Close()
			return ErrClosed
		}
		m.gen++
		gen := m.gen
		m.conn = conn
		m.current = ep
		m.mu.Unlock()

		if err := m.store.SetSelected(ctx, ep.URL); err != nil {
			m.logger.Printf("[node] persist selection %s: %v", ep.URL, err)
		}
		m.emit(domain.NodeConnectionState{Phase: domain.Connected, Endpoint: ep})

		go m.watch(conn, gen, ep.URL)
		return nil
	}

	m.emit(domain.NodeConnectionState{Phase: domain.Disconnected})
	return ErrAllNodesFailed
}

// watch fails over once the connection it guards drops.
func (m *Manager) watch(conn Conn, gen uint64, url string) {
	select {
	case <-conn.Disconnected():
	case <-m.done:
		return
	}

	m.mu.Lock()
	if m.closed || m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.current = nil
	m.mu.Unlock()

	m.logger.Printf("[node] connection to %s lost, failing over", url)
	m.emit(domain.NodeConnectionState{Phase: domain.Disconnected})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	endpoints, err := m.orderedEndpoints(ctx, "")
	if err != nil {
		m.logger.Printf("[node] failover aborted: %v", err)
		return
	}
	// Skip the endpoint that just dropped so failover moves on.
	rotated := endpoints
	if len(endpoints) > 1 && endpoints[0].URL == url {
		rotated = append(endpoints[1:], endpoints[0])
	}
	if err := m.connectAny(ctx, rotated); err != nil {
		m.logger.Printf("[node] failover failed: %v", err)
	}
}

// dropConn closes the current connection without emitting a state; the
// caller is about to reconnect.
func (m *Manager) dropConn() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.current = nil
	m.gen++
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (m *Manager) emit(s domain.NodeConnectionState) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	select {
	case m.states <- s:
	default:
		select {
		case <-m.states:
		default:
		}
		select {
		case m.states <- s:
		default:
		}
	}
	m.mu.Unlock()
}
