// Package publish announces resolved rows on NATS with trace context in the
// message headers.
package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// DefaultSubject is where rows are published when no subject is configured.
const DefaultSubject = "partsurfer.rows"

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher sends rows to one subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	owned   bool
}

// New wraps an existing connection. The caller keeps ownership of nc.
func New(nc *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

// Connect dials url and returns a Publisher that owns the connection.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("partsurfer"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				zap.L().Warn("publish: nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "publish: connect %s", url)
	}
	p := New(nc, subject)
	p.owned = true
	return p, nil
}

// Subject returns the subject rows go to.
func (p *Publisher) Subject() string { return p.subject }

// PublishRow serializes row as JSON and publishes it. Trace context from ctx
// is injected into the message headers.
func (p *Publisher) PublishRow(ctx context.Context, row *model.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return eris.Wrap(err, "publish: marshal row")
	}
	msg := &nats.Msg{Subject: p.subject, Data: data}
	msg.Header = nats.Header{}
	msg.Header.Set("Partsurfer-Pn", string(row.Canonical))
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return eris.Wrapf(p.nc.PublishMsg(msg), "publish: %s", p.subject)
}

// Close flushes pending messages and, when the Publisher owns the
// connection, drains it.
func (p *Publisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	if !p.owned {
		return eris.Wrap(p.nc.Flush(), "publish: flush")
	}
	return eris.Wrap(p.nc.Drain(), "publish: drain")
}

// Subscribe registers a handler for rows on subject. Trace context is
// extracted from the headers. Malformed messages are logged and dropped.
func Subscribe(nc *nats.Conn, subject string, handler func(context.Context, *model.Row)) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var row model.Row
		if err := json.Unmarshal(msg.Data, &row); err != nil {
			zap.L().Warn("publish: drop malformed row", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, &row)
	})
	return sub, eris.Wrapf(err, "publish: subscribe %s", subject)
}
