// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/neongallery/internal/metrics"
)

// Dispatcher queues events and delivers them to the configured endpoints.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger
	queue  chan *QueuedDelivery
	wg     sync.WaitGroup
	done   chan struct{}

	mu      sync.RWMutex
	running bool
}

// QueuedDelivery represents a delivery queued for processing.
type QueuedDelivery struct {
	ID      string
	Event   string
	Payload []byte
	URL     string
}

// Config holds dispatcher configuration.
type Config struct {
	URLs   []string // Endpoints receiving every subscribed event
	Secret string   // HMAC key for X-Webhook-Signature, unsigned when empty
	Events []string // Subscribed event types, all when empty

	Workers        int
	QueueSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Client         *http.Client
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        3,
		QueueSize:      100,
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
	}
}

// NewDispatcher creates a new webhook dispatcher. Zero values of cfg fall
// back to DefaultConfig.
func NewDispatcher(cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Client == nil {
		cfg.Client = httpClient
	}
	for _, e := range cfg.Events {
		if !IsKnownEvent(e) {
			return nil, fmt.Errorf("unknown webhook event %q", e)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan *QueuedDelivery, cfg.QueueSize),
		done:   make(chan struct{}),
	}, nil
}

// Enabled reports whether any endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return len(d.cfg.URLs) > 0
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.cfg.Workers, "endpoints", len(d.cfg.URLs))

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish. Queued
// deliveries that have not started are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping webhook dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case delivery := <-d.queue:
			d.processDelivery(ctx, delivery)
		}
	}
}

// Dispatch queues event for every endpoint subscribed to its type. It
// never blocks; a full queue drops the delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	if !d.Enabled() || !d.subscribed(event.Type) {
		return nil
	}

	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if !running {
		d.logger.Warn("dispatcher not running, cannot dispatch event", "event_type", event.Type)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling webhook event: %w", err)
	}

	for _, url := range d.cfg.URLs {
		qd := &QueuedDelivery{
			ID:      uuid.NewString(),
			Event:   event.Type,
			Payload: payload,
			URL:     url,
		}
		select {
		case d.queue <- qd:
			d.logger.Debug("delivery queued", "delivery_id", qd.ID, "event", event.Type)
		default:
			metrics.WebhookDeliveriesTotal.WithLabelValues("dropped").Inc()
			d.logger.Warn("delivery queue full, dropping delivery", "delivery_id", qd.ID, "event", event.Type)
		}
	}
	return nil
}

// DispatchEvent is a convenience method to dispatch an event with the given type and data.
func (d *Dispatcher) DispatchEvent(ctx context.Context, eventType string, data any) error {
	return d.Dispatch(ctx, NewEvent(eventType, data))
}

func (d *Dispatcher) subscribed(eventType string) bool {
	if len(d.cfg.Events) == 0 {
		return true
	}
	for _, e := range d.cfg.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
