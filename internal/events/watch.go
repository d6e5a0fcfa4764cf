package events

import (
	"context"
	"encoding/json"
	"strings"

	"jobtracker/internal/config"
	"jobtracker/internal/domain/application"
	apperrors "jobtracker/internal/errors"

	"github.com/nats-io/nats.go"
)

// Watch delivers every change published under cfg.SubjectPrefix to fn
// until ctx is done.
func Watch(ctx context.Context, cfg config.NATSConfig, fn func(subject string, c application.Change)) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return apperrors.InvalidInput("NATS_URL is not set", nil)
	}
	nc, err := nats.Connect(cfg.URL, nats.Timeout(cfg.ConnTimeout))
	if err != nil {
		return apperrors.Unavailable("connecting to NATS", err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(prefixOrDefault(cfg.SubjectPrefix)+".>", func(m *nats.Msg) {
		var c application.Change
		if err := json.Unmarshal(m.Data, &c); err != nil {
			return
		}
		fn(m.Subject, c)
	})
	if err != nil {
		return apperrors.Unavailable("subscribing to changes", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return nil
}
