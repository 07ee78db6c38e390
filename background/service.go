package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"trust-checker/models"
	"trust-checker/storage"
	"trust-checker/utils"
)

// SellerCacheTTL is how long a cached seller stays fresh.
const SellerCacheTTL = time.Hour

// ScamScoreThreshold is the score from which a scan counts as a detected scam.
const ScamScoreThreshold = 7

// ErrStopped is returned by Send once the worker has stopped.
var ErrStopped = errors.New("background: worker stopped")

type request struct {
	msg   Message
	reply chan Reply
}

// Service owns the store. All reads and writes happen on its worker
// goroutine, in the order messages arrive.
type Service struct {
	store  storage.Store
	logger *utils.Logger
	now    func() time.Time

	requests chan request
	stop     chan struct{}
	stopped  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	running   atomic.Bool
}

// NewService creates a Service. Call Start before sending messages.
func NewService(store storage.Store, logger *utils.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		now:      time.Now,
		requests: make(chan request),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// WithClock replaces the time source, mainly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start launches the worker goroutine. Later calls are no-ops.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		s.running.Store(true)
		go s.loop()
	})
}

// Stop ends the worker after the message in progress, if any. It returns
// immediately when Start was never called.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.running.Load() {
		<-s.stopped
	}
}

func (s *Service) loop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.stop:
			return
		case req := <-s.requests:
			req.reply <- s.handle(req.msg)
		}
	}
}

// Send delivers msg to the worker and waits for its reply. A message that
// was accepted is always applied, even if ctx ends while waiting.
func (s *Service) Send(ctx context.Context, msg Message) (Reply, error) {
	req := request{msg: msg, reply: make(chan Reply, 1)}
	select {
	case s.requests <- req:
	case <-s.stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispatch handles a wire-form message and returns a wire-form reply.
// Unrecognized types produce an error reply naming the type.
func (s *Service) Dispatch(ctx context.Context, raw []byte) ([]byte, error) {
	msg, err := Decode(raw)
	var unknown *UnknownMessageError
	if errors.As(err, &unknown) {
		s.logger.Warn("[background] %v", err)
		return json.Marshal(ErrorReply{Error: fmt.Sprintf("Unknown message type: %s", unknown.Type)})
	}
	if err != nil {
		return nil, err
	}

	reply, err := s.Send(ctx, msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(reply)
}

// Install writes first-run defaults: settings, an empty seller cache and
// zeroed stats.
func (s *Service) Install(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.Put(ctx, storage.KeySettings, models.DefaultSettings()); err != nil {
		return fmt.Errorf("background: install settings: %w", err)
	}
	if err := s.store.Put(ctx, storage.KeySellerCache, map[string]models.CachedSeller{}); err != nil {
		return fmt.Errorf("background: install seller cache: %w", err)
	}
	if err := s.store.Put(ctx, storage.KeyStats, models.Stats{}); err != nil {
		return fmt.Errorf("background: install stats: %w", err)
	}
	s.logger.Info("[background] Installed default settings")
	return nil
}

// Installed reports whether settings have been written before.
func (s *Service) Installed(ctx context.Context) bool {
	var settings models.Settings
	ok, err := s.store.Get(ctx, storage.KeySettings, &settings)
	return err == nil && ok
}

func (s *Service) handle(msg Message) Reply {
	ctx := context.Background()
	s.logger.Debug("[background] Received %s", msg.Type())

	switch m := msg.(type) {
	case ScanComplete:
		stats := s.loadStats(ctx)
		stats.ListingsScanned++
		if m.RiskScore >= ScamScoreThreshold {
			stats.ScamsDetected++
		}
		if err := s.store.Put(ctx, storage.KeyStats, stats); err != nil {
			s.logger.Error("[background] Saving stats failed: %v", err)
			return Ack{Success: false}
		}
		return Ack{Success: true}

	case GetSettings:
		return SettingsReply{Settings: s.loadSettings(ctx)}

	case CacheSeller:
		if m.Seller.SellerID == "" {
			return ErrorReply{Error: "sellerId is required"}
		}
		cache := s.loadSellerCache(ctx)
		entry := m.Seller
		entry.CachedAt = s.now().UnixMilli()
		cache[entry.SellerID] = entry
		if err := s.store.Put(ctx, storage.KeySellerCache, cache); err != nil {
			s.logger.Error("[background] Saving seller cache failed: %v", err)
			return Ack{Success: false}
		}
		return Ack{Success: true}

	case GetCachedSeller:
		cache := s.loadSellerCache(ctx)
		entry, ok := cache[m.SellerID]
		if !ok || s.now().UnixMilli()-entry.CachedAt >= SellerCacheTTL.Milliseconds() {
			return CachedSellerReply{}
		}
		return CachedSellerReply{Seller: &entry}

	default:
		return ErrorReply{Error: fmt.Sprintf("Unknown message type: %s", msg.Type())}
	}
}

// The loaders substitute empty defaults when the store cannot be read.

func (s *Service) loadStats(ctx context.Context) models.Stats {
	var stats models.Stats
	if _, err := s.store.Get(ctx, storage.KeyStats, &stats); err != nil {
		s.logger.Warn("[background] Reading stats failed, starting from zero: %v", err)
		return models.Stats{}
	}
	return stats
}

func (s *Service) loadSettings(ctx context.Context) models.Settings {
	var settings models.Settings
	ok, err := s.store.Get(ctx, storage.KeySettings, &settings)
	if err != nil {
		s.logger.Warn("[background] Reading settings failed, using defaults: %v", err)
		return models.DefaultSettings()
	}
	if !ok {
		return models.DefaultSettings()
	}
	return settings
}

func (s *Service) loadSellerCache(ctx context.Context) map[string]models.CachedSeller {
	cache := make(map[string]models.CachedSeller)
	if _, err := s.store.Get(ctx, storage.KeySellerCache, &cache); err != nil {
		s.logger.Warn("[background] Reading seller cache failed, starting empty: %v", err)
		return make(map[string]models.CachedSeller)
	}
	if cache == nil {
		cache = make(map[string]models.CachedSeller)
	}
	return cache
}

// Stats reads the counters directly, for status output.
func (s *Service) Stats(ctx context.Context) models.Stats {
	return s.loadStats(ctx)
}
