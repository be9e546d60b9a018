package changefeed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samber/lo"
)

const DefaultSubjectPrefix = "estate.changes"

// Connect dials NATS with reconnect handling suited for a long-lived change feed.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("estate-messaging"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
	)
}

// NATSFeed publishes one message per participant on <prefix>.<table>.<scope token>, so a
// subscriber only listens to the subjects of its own scope.
type NATSFeed struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

func NewNATSFeed(nc *nats.Conn) *NATSFeed {
	return &NATSFeed{nc: nc, prefix: DefaultSubjectPrefix, logger: slog.Default()}
}

// scopeToken makes a uid safe as a single subject token.
func scopeToken(scope string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(scope))
}

func (f *NATSFeed) subject(table Table, scope string) string {
	return fmt.Sprintf("%s.%s.%s", f.prefix, table, scopeToken(scope))
}

func (f *NATSFeed) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	for _, uid := range lo.Uniq(lo.Compact(e.Participants)) {
		if err := f.nc.Publish(f.subject(e.Table, uid), data); err != nil {
			f.logger.Error("failed to publish change event", "table", e.Table, "op", e.Op, "error", err)
			return err
		}
	}
	return nil
}

func (f *NATSFeed) Subscribe(scope string, filter Filter, onEvent func(Event)) (Subscription, error) {
	if scope == "" {
		return nil, ErrEmptyScope
	}
	subject := fmt.Sprintf("%s.*.%s", f.prefix, scopeToken(scope))
	sub, err := f.nc.Subscribe(subject, func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			f.logger.Error("failed to decode change event", "subject", msg.Subject, "error", err)
			return
		}
		if filter.Match(e) {
			onEvent(e)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := f.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	return sub, nil
}
