// Package main provides the wallet engine daemon: it keeps one live
// node connection with automatic failover, persists the endpoint list,
// and exposes health, status and Prometheus metrics over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"sora-wallet-engine/internal/chain"
	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/node"
	"sora-wallet-engine/internal/observability"
	"sora-wallet-engine/internal/storage"
	"sora-wallet-engine/internal/storage/memory"
	"sora-wallet-engine/internal/storage/migrations"
	pgstore "sora-wallet-engine/internal/storage/postgres"
)

// Server holds the daemon's components.
type Server struct {
	manager *node.Manager
	logger  *log.Logger

	pingInterval time.Duration

	// State
	mu         sync.Mutex
	started    time.Time
	connected  time.Time
	currentURL string
	wasLive    bool

	// Stats
	connects  int
	failovers int
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	nodes := flag.String("nodes", os.Getenv("NODE_ENDPOINTS"), "Comma-separated node endpoints, each Name=wss://url or a bare URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for health/status/metrics")
	dialTimeout := flag.Duration("dial-timeout", node.DefaultDialTimeout, "Timeout for one connection attempt")
	pingInterval := flag.Duration("ping-interval", 30*time.Second, "Liveness probe interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[walletd] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	defaults := parseEndpoints(*nodes)
	if len(defaults) == 0 {
		logger.Fatal("--nodes is required (e.g. --nodes sora=wss://ws.mof.sora.org)")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create node store
	store, cleanup, err := createNodeStore(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create node store: %v", err)
	}
	defer cleanup()

	manager, err := node.NewManager(ctx, chain.NodeDialer{}, store, defaults,
		node.WithLogger(logger),
		node.WithDialTimeout(*dialTimeout),
	)
	if err != nil {
		logger.Fatalf("Failed to create node manager: %v", err)
	}
	defer manager.Close()

	server := &Server{
		manager:      manager,
		logger:       logger,
		pingInterval: *pingInterval,
		started:      time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	// Run the daemon
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// parseEndpoints splits the --nodes flag into endpoint entries.
func parseEndpoints(s string) []*domain.NodeEndpoint {
	var out []*domain.NodeEndpoint
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url := "", part
		if i := strings.Index(part, "="); i > 0 {
			name, url = part[:i], part[i+1:]
		}
		out = append(out, &domain.NodeEndpoint{URL: url, Name: name})
	}
	return out
}

// createNodeStore creates the endpoint store.
func createNodeStore(ctx context.Context, postgresDSN string, useMemory bool) (storage.NodeStore, func(), error) {
	if useMemory {
		return memory.NewNodeStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return pgstore.NewNodeStore(pool), func() { pool.Close() }, nil
}

// Run connects and then tracks connection state until the context ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting wallet daemon...")

	if err := s.manager.Connect(ctx); err != nil {
		observability.RecordNodeConnect("failed")
		return fmt.Errorf("initial connect: %w", err)
	}

	go s.runPinger(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-s.manager.States():
			if !ok {
				return nil
			}
			s.observe(state)
		}
	}
}

// observe records one connection state transition.
func (s *Server) observe(state domain.NodeConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch state.Phase {
	case domain.Connected:
		s.connects++
		s.connected = time.Now()
		s.currentURL = state.Endpoint.URL
		if s.wasLive {
			// A reconnect after a live connection is a failover.
			s.failovers++
			observability.RecordNodeFailover()
		}
		s.wasLive = true
		observability.RecordNodeConnect("ok")
		s.logger.Printf("Connected to %s", state.Endpoint.URL)
	case domain.Disconnected:
		s.currentURL = ""
		observability.RecordNodeConnect("failed")
		s.logger.Println("Disconnected from all nodes")
	}
}

// runPinger probes the live connection on an interval.
func (s *Server) runPinger(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn := s.manager.Conn()
			if conn == nil {
				continue
			}
			start := time.Now()
			err := conn.Ping(ctx)
			observability.RecordRPCLatency("system_health", time.Since(start).Seconds())
			if err != nil && ctx.Err() == nil {
				s.logger.Printf("Liveness probe failed: %v", err)
			}
		}
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	CurrentNode string    `json:"current_node,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
	Connects    int       `json:"connects"`
	Failovers   int       `json:"failovers"`
}

// handleStatus returns daemon status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := "disconnected"
	if s.currentURL != "" {
		status = "connected"
	}
	resp := StatusResponse{
		Status:      status,
		Uptime:      time.Since(s.started).String(),
		CurrentNode: s.currentURL,
		ConnectedAt: s.connected,
		Connects:    s.connects,
		Failovers:   s.failovers,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
