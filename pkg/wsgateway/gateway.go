package wsgateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway upgrades authenticated HTTP requests to WebSocket connections
// and hands each one off to its own Connection.
type Gateway struct {
	broker *bus.Broker
	tokens TokenValidator
}

// TokenValidator resolves a bearer token to the user it was issued for.
// Satisfied by *security.TokenManager.
type TokenValidator interface {
	Validate(token string) (string, bool)
}

// NewGateway builds a Gateway that authenticates against tokens and
// resolves inventories through broker.
func NewGateway(broker *bus.Broker, tokens TokenValidator) *Gateway {
	return &Gateway{broker: broker, tokens: tokens}
}

// ServeHTTP implements GET /rtc: it validates the bearer token, resolves
// the caller's inventory over the bus, upgrades the connection, and
// blocks serving it until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponent("wsgateway")

	user, ok := g.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	inventoryID, err := g.resolveInventory(ctx, user)
	cancel()
	if err != nil {
		logger.Warn().Err(err).Str("user", user).Msg("failed to resolve inventory")
		http.Error(w, "inventory unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	wsConn, err := NewConnection(g.broker, conn, user, inventoryID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to subscribe connection")
		_ = conn.Close()
		return
	}

	wsConn.Serve()
}

func (g *Gateway) authenticate(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return g.tokens.Validate(strings.TrimPrefix(header, prefix))
}

func (g *Gateway) resolveInventory(ctx context.Context, user string) (uuid.UUID, error) {
	reply, err := g.broker.Request(ctx, bus.NewRequest("persistence", bus.PersistenceQueryRequest{
		Query: bus.GetInventoryForUser{User: user},
	}))
	if err != nil {
		return uuid.Nil, err
	}
	if reply == nil {
		return uuid.Nil, bus.ErrTimeout
	}

	resp, ok := reply.Body.(bus.PersistenceQueryResponse)
	if !ok {
		return uuid.Nil, &bus.ProtocolMismatchError{Expected: "PersistenceQueryResponse", Got: bodyTypeName(reply.Body)}
	}

	result, ok := resp.Response.(bus.GetInventoryForUserResult)
	if !ok {
		return uuid.Nil, &bus.ProtocolMismatchError{Expected: "GetInventoryForUserResult", Got: "other"}
	}
	if result.Err != "" {
		return uuid.Nil, errors.New(result.Err)
	}

	return result.InventoryID, nil
}

func bodyTypeName(b bus.Body) string {
	return fmt.Sprintf("%T", b)
}
