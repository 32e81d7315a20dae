package actor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/security"
)

func startTestBroker(t *testing.T) *bus.Broker {
	t.Helper()
	b := bus.NewBroker()
	go b.Run()
	t.Cleanup(func() {
		_ = b.Send(bus.NewEnvelope("", bus.Stop{}))
	})
	return b
}

// fakePersistence answers persistence queries from a canned table,
// standing in for pkg/persistence.Gateway in actor-level tests.
func fakePersistence(t *testing.T, b *bus.Broker, answer func(bus.Query) bus.QueryResponse) {
	t.Helper()
	_, ch, err := b.Subscribe("^persistence$")
	require.NoError(t, err)

	go func() {
		for e := range ch {
			req, ok := e.Body.(bus.PersistenceQueryRequest)
			if !ok {
				continue
			}
			reply := bus.NewEnvelope(bus.ReplyTopic(e.ID), bus.PersistenceQueryResponse{Response: answer(req.Query)})
			_ = b.Send(reply)
		}
	}()
}

func TestAuthActorSuccess(t *testing.T) {
	b := startTestBroker(t)
	invID := uuid.New()
	fakePersistence(t, b, func(q bus.Query) bus.QueryResponse {
		_ = q.(bus.AuthenticateUser)
		return bus.AuthenticateUserResult{InventoryID: invID}
	})

	tokens := security.NewTokenManager()
	a := NewAuthActor(b, tokens)
	go a.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := b.Request(ctx, bus.NewRequest("auth", bus.AuthenticationRequest{User: "alice", Password: "secret"}))
	require.NoError(t, err)
	require.NotNil(t, reply)

	resp := reply.Body.(bus.AuthenticationResponse)
	assert.Empty(t, resp.Err)
	assert.NotEmpty(t, resp.Token)

	user, ok := tokens.Validate(resp.Token)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
}

func TestAuthActorFailure(t *testing.T) {
	b := startTestBroker(t)
	fakePersistence(t, b, func(q bus.Query) bus.QueryResponse {
		return bus.AuthenticateUserResult{Err: "persistence: unauthorized"}
	})

	a := NewAuthActor(b, security.NewTokenManager())
	go a.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := b.Request(ctx, bus.NewRequest("auth", bus.AuthenticationRequest{User: "alice", Password: "wrong"}))
	require.NoError(t, err)
	require.NotNil(t, reply)

	resp := reply.Body.(bus.AuthenticationResponse)
	assert.Empty(t, resp.Token)
	assert.NotEmpty(t, resp.Err)
}
