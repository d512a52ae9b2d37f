package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Default session timing
const (
	DefaultDebounce       = 2 * time.Second
	DefaultMinFixInterval = time.Second
)

// ErrSessionClosed is returned when starting a closed session
var ErrSessionClosed = errors.New("capture session closed")

// Update is delivered after the location settles and has been geocoded
type Update struct {
	Fix     Fix
	Address *Address
	Err     error
}

// SessionConfig tunes a capture session
type SessionConfig struct {
	Debounce       time.Duration // Quiet window before geocoding
	MinFixInterval time.Duration // Fixes closer together than this are dropped
}

// Session watches a location source while the capture screen is open.
// Every accepted fix restarts the debounce window; once the location is
// quiet it is geocoded and onUpdate is called. Close releases the source
// subscription and the pending timer.
type Session struct {
	source   LocationSource
	geocoder Geocoder
	config   SessionConfig
	onUpdate func(Update)
	logger   *slog.Logger

	debouncer *Debouncer
	ctx       context.Context
	cancel    context.CancelFunc

	mu      sync.Mutex
	release func()
	latest  *Fix
	closed  bool
}

// NewSession creates a session; geocoder may be nil to deliver fixes only
func NewSession(source LocationSource, geocoder Geocoder, config SessionConfig, onUpdate func(Update), logger *slog.Logger) *Session {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.MinFixInterval < 0 {
		config.MinFixInterval = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		source:    source,
		geocoder:  geocoder,
		config:    config,
		onUpdate:  onUpdate,
		logger:    logger,
		debouncer: NewDebouncer(config.Debounce),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the location source
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.release != nil {
		return nil
	}

	release, err := s.source.Watch(ctx, s.handleFix)
	if err != nil {
		return err
	}
	s.release = release
	return nil
}

// Latest returns the most recent accepted fix
func (s *Session) Latest() (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Fix{}, false
	}
	return *s.latest, true
}

func (s *Session) handleFix(fix Fix) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.latest != nil && fix.At.Sub(s.latest.At) < s.config.MinFixInterval {
		s.mu.Unlock()
		return
	}
	s.latest = &fix
	s.mu.Unlock()

	s.debouncer.Trigger(func() { s.settle(fix) })
}

func (s *Session) settle(fix Fix) {
	update := Update{Fix: fix}
	if s.geocoder != nil {
		addr, err := s.geocoder.Reverse(s.ctx, fix.Point())
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("reverse geocoding failed", "lat", fix.Lat, "lng", fix.Lng, "error", err)
		}
		update.Address = addr
		update.Err = err
	}
	if s.onUpdate != nil {
		s.onUpdate(update)
	}
}

// Close stops the session. No update is delivered after Close returns.
// It must not be called from onUpdate.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	release := s.release
	s.release = nil
	s.mu.Unlock()

	s.cancel()
	if release != nil {
		release()
	}
	s.debouncer.Stop()
}
