// Package events publishes acknowledged job application changes to NATS.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"jobtracker/internal/config"
	"jobtracker/internal/domain/application"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/logger"
	"jobtracker/internal/telemetry"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobtracker/events")

type conn interface {
	Publish(subj string, data []byte) error
	Close()
}

type Publisher struct {
	conn   conn
	prefix string
	logger *zap.Logger
}

// NewPublisher connects to cfg.URL. Without a URL the publisher drops
// every change, so the app runs without a broker.
func NewPublisher(cfg config.NATSConfig, log *zap.Logger) (*Publisher, error) {
	p := &Publisher{
		prefix: prefixOrDefault(cfg.SubjectPrefix),
		logger: logger.OrNop(log).Named("events"),
	}
	if strings.TrimSpace(cfg.URL) == "" {
		p.logger.Info("NATS_URL not set, change events disabled")
		return p, nil
	}

	opts := []nats.Option{
		nats.Name("jobtracker"),
		nats.Timeout(cfg.ConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, apperrors.Unavailable("connecting to NATS", err)
	}
	p.conn = nc
	return p, nil
}

func prefixOrDefault(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return "job_applications"
	}
	return prefix
}

// Subject is the subject a change of kind is published on.
func (p *Publisher) Subject(kind application.ChangeKind) string {
	return p.prefix + "." + string(kind)
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.conn != nil
}

func (p *Publisher) Publish(ctx context.Context, c application.Change) error {
	if !p.Enabled() {
		return nil
	}
	_, span := tracer.Start(ctx, "PublishChange")
	defer span.End()

	subject := p.Subject(c.Kind)
	data, err := json.Marshal(c)
	if err != nil {
		span.RecordError(err)
		return apperrors.Internal("marshaling change", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(subject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish change",
			zap.String("id", c.ID.String()),
			zap.String("subject", subject),
			zap.Error(err))
		return apperrors.Unavailable("publishing to NATS", err)
	}

	p.logger.Debug("published change",
		zap.String("id", c.ID.String()),
		zap.String("subject", subject))
	return nil
}

func (p *Publisher) Close() error {
	if p.Enabled() {
		p.conn.Close()
	}
	return nil
}
