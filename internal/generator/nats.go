package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/deepwiki/internal/retry"
)

// NATSConfig configures the request/reply transport to a generator service.
type NATSConfig struct {
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`

	// Transport-level retry for transient failures (no responders, timeouts).
	RetryMode    retry.BackoffMode `yaml:"retry_mode,omitempty"`
	RetryInitial time.Duration     `yaml:"retry_initial,omitempty"`
	RetryMax     time.Duration     `yaml:"retry_max,omitempty"`
	MaxRetries   int               `yaml:"max_retries,omitempty"`
}

// NATSGenerator reaches a content-generator service over NATS request/reply
// with JSON payloads.
type NATSGenerator struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	policy  retry.Policy
}

// NewNATSGenerator connects to NATS and returns the generator client.
func NewNATSGenerator(cfg NATSConfig) (*NATSGenerator, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("generator subject is required")
	}
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1 // NewPolicy substitutes the default
	}
	policy := retry.NewPolicy(cfg.RetryMode, cfg.RetryInitial, cfg.RetryMax, maxRetries)

	slog.Info("Generator transport initialized", "url", cfg.URL, "subject", cfg.Subject)
	return &NATSGenerator{conn: conn, subject: cfg.Subject, timeout: timeout, policy: policy}, nil
}

// Generate sends the request and decodes the draft reply. Transient
// transport failures are retried per the backoff policy; reply decoding
// errors are not.
func (g *NATSGenerator) Generate(ctx context.Context, req Request) (*Draft, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	var msg *nats.Msg
	for attempt := 0; ; attempt++ {
		msg, err = g.request(ctx, payload)
		if err == nil {
			break
		}
		if attempt >= g.policy.MaxRetries || !transient(err) || ctx.Err() != nil {
			return nil, fmt.Errorf("generator request for %s: %w", req.Slug, err)
		}
		delay := g.policy.Delay(attempt + 1)
		slog.Warn("Generator request failed, retrying", "slug", req.Slug, "attempt", attempt+1, "delay", delay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("generator request for %s: %w", req.Slug, ctx.Err())
		case <-time.After(delay):
		}
	}

	var draft Draft
	if err := json.Unmarshal(msg.Data, &draft); err != nil {
		return nil, fmt.Errorf("decode generator reply for %s: %w", req.Slug, err)
	}
	return &draft, nil
}

func (g *NATSGenerator) request(ctx context.Context, payload []byte) (*nats.Msg, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.conn.RequestWithContext(ctx, g.subject, payload)
}

// transient reports whether the error is worth a transport-level retry.
func transient(err error) bool {
	return errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Close drains the underlying connection.
func (g *NATSGenerator) Close() {
	if g.conn != nil {
		g.conn.Close()
	}
}
