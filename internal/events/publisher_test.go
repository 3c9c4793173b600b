package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNATS(t *testing.T) *server.Server {
	t.Helper()
	s, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go s.Start()
	require.True(t, s.ReadyForConnections(10*time.Second))
	t.Cleanup(s.Shutdown)
	return s
}

func TestNATSPublisher(t *testing.T) {
	s := startNATS(t)

	pub, closeFn, err := Connect(s.ClientURL())
	require.NoError(t, err)
	defer closeFn()

	sub, err := nats.Connect(s.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 4)
	_, err = sub.ChanSubscribe(">", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	ctx := context.Background()
	issued := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, pub.GrantIssued(ctx, GrantIssuedEvent{
		DocumentID: "doc1", GrantID: "g1", OwnerID: "alice",
		IssuedAt: issued, ExpiresAt: issued.Add(40 * time.Second),
	}))
	require.NoError(t, pub.DocumentRevoked(ctx, DocumentRevokedEvent{
		DocumentID: "doc1", Reason: "expired", RevokedAt: issued.Add(40 * time.Second),
	}))

	first := receive(t, msgs)
	assert.Equal(t, GrantIssued, first.Subject)
	var ev GrantIssuedEvent
	require.NoError(t, json.Unmarshal(first.Data, &ev))
	assert.Equal(t, "g1", ev.GrantID)

	second := receive(t, msgs)
	assert.Equal(t, DocumentRevoked, second.Subject)
	assert.Contains(t, string(second.Data), `"reason":"expired"`)
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	s := startNATS(t)

	pub, closeFn, err := Connect(s.ClientURL())
	require.NoError(t, err)
	defer closeFn()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, pub.DocumentRevoked(ctx, DocumentRevokedEvent{DocumentID: "doc1"}), context.Canceled)
}

func TestConnect_Unreachable(t *testing.T) {
	_, _, err := Connect("nats://127.0.0.1:1")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.GrantIssued(context.Background(), GrantIssuedEvent{}))
	assert.NoError(t, p.DocumentRevoked(context.Background(), DocumentRevokedEvent{}))
}

func receive(t *testing.T, ch <-chan *nats.Msg) *nats.Msg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}
