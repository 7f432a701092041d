// Package embedded provides an embeddable roomplan server for in-process use.
package embedded

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mistakeknot/roomplan/internal/auth"
	"github.com/mistakeknot/roomplan/internal/booking"
	httpapi "github.com/mistakeknot/roomplan/internal/http"
	"github.com/mistakeknot/roomplan/internal/storage/sqlite"
	"github.com/mistakeknot/roomplan/internal/ws"
)

// Config configures the embedded server
type Config struct {
	// DBPath is the path to the SQLite database file.
	// If empty, defaults to ~/.roomplan/data.db
	DBPath string

	// Port is the HTTP port to listen on.
	// If 0, defaults to 7343.
	Port int

	// Host is the host to bind to.
	// If empty, defaults to localhost (127.0.0.1).
	Host string

	// KeysFile enables API key authentication when set. Leave empty for
	// unauthenticated in-process use.
	KeysFile string

	// PromoteInterval is the lifecycle promoter tick. Zero means the default.
	PromoteInterval time.Duration

	// ReapInterval is the queue reaper tick. Zero means the default.
	ReapInterval time.Duration

	// GraceWindow is how long a queued reservation may linger past its start
	// before the reaper purges it. Zero means the default.
	GraceWindow time.Duration
}

// Server is an embedded roomplan server
type Server struct {
	cfg      Config
	store    *sqlite.ResilientStore
	mgr      *booking.Manager
	hub      *ws.Hub
	promoter *booking.Promoter
	reaper   *booking.Reaper
	http     *http.Server
	cancel   context.CancelFunc
	started  bool
	mu       sync.Mutex
}

// New creates a new embedded roomplan server
func New(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".roomplan", "data.db")
	}
	if cfg.Port == 0 {
		cfg.Port = 7343
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.PromoteInterval == 0 {
		cfg.PromoteInterval = booking.DefaultPromoteInterval
	}
	if cfg.ReapInterval == 0 {
		cfg.ReapInterval = booking.DefaultReapInterval
	}
	if cfg.GraceWindow == 0 {
		cfg.GraceWindow = booking.DefaultGraceWindow
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	store := sqlite.NewResilient(st)

	var mw func(http.Handler) http.Handler
	if cfg.KeysFile != "" {
		keyring, err := auth.LoadKeyring(cfg.KeysFile)
		if err != nil {
			return nil, fmt.Errorf("load auth: %w", err)
		}
		mw = auth.Middleware(keyring)
	}

	hub := ws.NewHub()
	mgr := booking.NewManager(store).WithBroadcaster(hub)
	svc := httpapi.NewService(mgr)
	router := httpapi.NewRouter(svc, hub.Handler(), mw)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return &Server{
		cfg:      cfg,
		store:    store,
		mgr:      mgr,
		hub:      hub,
		promoter: booking.NewPromoter(mgr, cfg.PromoteInterval),
		reaper:   booking.NewReaper(mgr, cfg.ReapInterval, cfg.GraceWindow),
		http:     httpServer,
	}, nil
}

// Start starts the embedded server and its background workers in goroutines
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.promoter.Start(ctx)
	s.reaper.Start(ctx)

	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "roomplan server error: %v\n", err)
		}
	}()

	// Wait a moment for the server to start
	time.Sleep(50 * time.Millisecond)
	return nil
}

// Stop stops the embedded server and workers gracefully
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.promoter.Stop()
	s.reaper.Stop()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	return s.store.Close()
}

// Addr returns the server's listen address
func (s *Server) Addr() string {
	return s.http.Addr
}

// URL returns the base URL for the server
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.http.Addr)
}

// Manager returns the booking manager for direct in-process access
func (s *Server) Manager() *booking.Manager {
	return s.mgr
}

// Store returns the underlying store for direct access if needed
func (s *Server) Store() *sqlite.ResilientStore {
	return s.store
}
