package publish

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

func runServer(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "nats server not ready")
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	assert.Equal(t, "", carrier.Get("missing"))
	assert.Nil(t, carrier.Keys())

	carrier.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	assert.Len(t, carrier.Keys(), 1)
}

func TestPublishRow_RoundTrip(t *testing.T) {
	url := runServer(t)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	got := make(chan *model.Row, 1)
	traces := make(chan trace.SpanContext, 1)
	s, err := Subscribe(sub, "", func(ctx context.Context, row *model.Row) {
		traces <- trace.SpanContextFromContext(ctx)
		got <- row
	})
	require.NoError(t, err)
	defer s.Unsubscribe() //nolint:errcheck
	require.NoError(t, sub.Flush())

	p, err := Connect(url, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSubject, p.Subject())

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	row := model.NewRow("P00930-B21")
	row.Status = model.StatusOK
	row.Search.Title = "HPE 32GB DIMM"
	require.NoError(t, p.PublishRow(ctx, row))
	require.NoError(t, p.Close())

	select {
	case r := <-got:
		assert.Equal(t, model.PartNumber("P00930-B21"), r.Canonical)
		assert.Equal(t, "HPE 32GB DIMM", r.Search.Title)
		sc := <-traces
		assert.Equal(t, traceID, sc.TraceID())
		assert.True(t, sc.IsRemote())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for row")
	}
}

func TestSubscribe_DropsMalformed(t *testing.T) {
	url := runServer(t)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	called := make(chan struct{}, 1)
	_, err = Subscribe(nc, "rows.test", func(context.Context, *model.Row) { called <- struct{}{} })
	require.NoError(t, err)

	require.NoError(t, nc.Publish("rows.test", []byte("{invalid json")))
	require.NoError(t, nc.Flush())

	select {
	case <-called:
		t.Fatal("handler called for malformed message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublisher_BorrowedConnection(t *testing.T) {
	url := runServer(t)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	p := New(nc, "custom.rows")
	require.NoError(t, p.PublishRow(context.Background(), model.NewRow("AF573A")))
	require.NoError(t, p.Close())
	assert.True(t, nc.IsConnected())

	var nilPub *Publisher
	assert.NoError(t, nilPub.Close())
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish: connect")
}
