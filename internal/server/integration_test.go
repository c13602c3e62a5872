package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parley/internal/client"
	"parley/internal/crypto"
	"parley/internal/logging"
)

// dialTestClient connects a controller to the test relay with events
// surfaced on a channel.
func dialTestClient(t *testing.T, url, name string, id int64) (*client.Controller, chan client.Event) {
	t.Helper()
	priv, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	events := make(chan client.Event, 16)
	ctl, err := client.Dial(context.Background(), client.Config{
		ServerURL:  url,
		Name:       name,
		ID:         id,
		Key:        priv,
		Timeout:    5 * time.Second,
		Notify:     func(ev client.Event) { events <- ev },
		LogBackend: logging.NewDiscard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { ctl.Close() })
	return ctl, events
}

func nextEvent(t *testing.T, events chan client.Event) client.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
		return client.Event{}
	}
}

func TestEndToEndChat(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	ctx := context.Background()

	alice, aliceEvents := dialTestClient(t, url, "alice", 0)
	status, err := alice.Login(ctx)
	require.NoError(t, err)
	require.Equal(t, "Registered as id=1", status)
	require.EqualValues(t, 1, alice.ID())

	bob, bobEvents := dialTestClient(t, url, "bob", 0)
	status, err = bob.Login(ctx)
	require.NoError(t, err)
	require.Equal(t, "Registered as id=2", status)
	require.EqualValues(t, 2, bob.ID())

	// Alice learns that bob joined.
	ev := nextEvent(t, aliceEvents)
	require.Equal(t, client.EventJoined, ev.Kind)
	require.Equal(t, "bob", ev.SenderName)

	// Bob's roster now holds alice and she is addressable.
	roster := bob.Roster()
	require.Len(t, roster, 1)
	require.Equal(t, "alice", roster[0].Name)
	require.NoError(t, bob.SetReceiver(1))

	// Private message, encrypted on bob's side, decrypted on alice's.
	ack, err := bob.Post("hello alice")
	require.NoError(t, err)
	text, err := ack.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "Send Successful", text)

	ev = nextEvent(t, aliceEvents)
	require.Equal(t, client.EventMessage, ev.Kind)
	require.EqualValues(t, 2, ev.SenderID)
	require.Equal(t, "bob", ev.SenderName)
	require.Equal(t, "hello alice", ev.Text)

	// Broadcast from alice reaches bob in the clear.
	ack, err = alice.Post("hi everyone")
	require.NoError(t, err)
	text, err = ack.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "Broadcast Successful", text)

	ev = nextEvent(t, bobEvents)
	require.Equal(t, client.EventBroadcast, ev.Kind)
	require.Equal(t, "hi everyone", ev.Text)

	// Bob logs out; alice is told and her roster shrinks back.
	require.NoError(t, bob.Logout(ctx))
	ev = nextEvent(t, aliceEvents)
	require.Equal(t, client.EventLeft, ev.Kind)
	require.EqualValues(t, 2, ev.SenderID)
	require.Empty(t, alice.Roster())
}

func TestEndToEndReauthentication(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	ctx := context.Background()

	priv, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	first, err := client.Dial(ctx, client.Config{
		ServerURL:  url,
		Name:       "alice",
		Key:        priv,
		Timeout:    5 * time.Second,
		Notify:     func(client.Event) {},
		LogBackend: logging.NewDiscard(),
	})
	require.NoError(t, err)
	_, err = first.Login(ctx)
	require.NoError(t, err)
	id := first.ID()
	require.NoError(t, first.Logout(ctx))
	first.Close()

	// Same key and id: recognized as a returning identity.
	second, err := client.Dial(ctx, client.Config{
		ServerURL:  url,
		Name:       "alice",
		ID:         id,
		Key:        priv,
		Timeout:    5 * time.Second,
		Notify:     func(client.Event) {},
		LogBackend: logging.NewDiscard(),
	})
	require.NoError(t, err)
	defer second.Close()
	status, err := second.Login(ctx)
	require.NoError(t, err)
	require.Equal(t, "Welcome back, alice", status)
	require.Equal(t, id, second.ID())
}
