package wsgateway

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
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

// fakePersistence answers persistence queries from a canned table.
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

func newTestServer(t *testing.T, b *bus.Broker, tokens *security.TokenManager) *httptest.Server {
	t.Helper()
	gw := NewGateway(b, tokens)
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rtc"
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGatewayRejectsMissingToken(t *testing.T) {
	b := startTestBroker(t)
	tokens := security.NewTokenManager()
	srv := newTestServer(t, b, tokens)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rtc"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGatewayUpgradesAuthenticatedConnection(t *testing.T) {
	b := startTestBroker(t)
	invID := uuid.New()
	fakePersistence(t, b, func(q bus.Query) bus.QueryResponse {
		_ = q.(bus.GetInventoryForUser)
		return bus.GetInventoryForUserResult{InventoryID: invID}
	})

	tokens := security.NewTokenManager()
	token, err := tokens.Issue("alice", time.Hour)
	require.NoError(t, err)

	srv := newTestServer(t, b, tokens)
	conn := dialWS(t, srv, token)

	_, ch, err := b.Subscribe("^global$")
	require.NoError(t, err)

	require.NoError(t, b.Send(bus.NewEnvelope("global", bus.Tick{Seq: 1})))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for global delivery")
	}

	var frame outboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.True(t, frame.Success)
}

func TestGatewayHandlesBuildRequest(t *testing.T) {
	b := startTestBroker(t)
	invID := uuid.New()
	fakePersistence(t, b, func(q bus.Query) bus.QueryResponse {
		_ = q.(bus.GetInventoryForUser)
		return bus.GetInventoryForUserResult{InventoryID: invID}
	})

	buildingID := uuid.New()
	_, ch, err := b.Subscribe(fmt.Sprintf("^in:inventory:%s$", invID))
	require.NoError(t, err)
	go func() {
		for e := range ch {
			req, ok := e.Body.(bus.BuildRequest)
			if !ok {
				continue
			}
			reply := bus.NewEnvelope(bus.ReplyTopic(e.ID), bus.BuildResponse{BuildingID: buildingID})
			_ = b.Send(reply)
			_ = req
		}
	}()

	tokens := security.NewTokenManager()
	token, err := tokens.Issue("alice", time.Hour)
	require.NoError(t, err)

	srv := newTestServer(t, b, tokens)
	conn := dialWS(t, srv, token)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"body": map[string]any{"build": map[string]any{"blueprint": "hut"}},
	}))

	var frame outboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.True(t, frame.Success)
	require.NotNil(t, frame.Message)
	assert.Equal(t, buildingID.String(), *frame.Message)
}
