package wsgateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cuemby/busline/pkg/actor"
	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBufferSize bounds the queue of build-reply frames waiting on
	// writePump; a slow client drops replies rather than blocking the
	// read pump.
	sendBufferSize = 64
)

// Connection is one authenticated WebSocket client: it fans bus
// deliveries on a small set of topics out to the socket, and turns
// inbound text frames into BuildRequest publishes. Only writePump ever
// touches conn for writes; every other goroutine hands its frame to
// send instead, since gorilla/websocket permits only one concurrent
// writer per connection.
type Connection struct {
	broker      *bus.Broker
	conn        *websocket.Conn
	user        string
	inventoryID uuid.UUID

	subIDs []uuid.UUID
	merged <-chan bus.Envelope
	send   chan outboundFrame
}

// NewConnection subscribes conn to global, out:account:<user>, and
// out:inventory:<inventoryID>, merging the three delivery queues into
// one stream.
func NewConnection(broker *bus.Broker, conn *websocket.Conn, user string, inventoryID uuid.UUID) (*Connection, error) {
	patterns := []string{
		"^global$",
		"^out:account:" + user + "$",
		"^out:inventory:" + inventoryID.String() + "$",
	}

	var ids []uuid.UUID
	var chans []<-chan bus.Envelope
	for _, p := range patterns {
		id, ch, err := broker.Subscribe(p)
		if err != nil {
			for _, prior := range ids {
				_ = broker.Unsubscribe(prior)
			}
			return nil, err
		}
		ids = append(ids, id)
		chans = append(chans, ch)
	}

	return &Connection{
		broker:      broker,
		conn:        conn,
		user:        user,
		inventoryID: inventoryID,
		subIDs:      ids,
		merged:      actor.Merge(chans...),
		send:        make(chan outboundFrame, sendBufferSize),
	}, nil
}

// Serve runs both pumps and blocks until the connection closes. It
// always unsubscribes every topic before returning.
func (c *Connection) Serve() {
	defer c.teardown()

	done := make(chan struct{})
	go c.writePump(done)
	c.readPump()
	close(done)
}

func (c *Connection) teardown() {
	for _, id := range c.subIDs {
		_ = c.broker.Unsubscribe(id)
	}
	_ = c.conn.Close()
}

// writePump is the sole writer of conn: it relays merged bus
// deliveries and queued build replies out as outbound frames, and
// pings on an interval to keep the connection alive.
func (c *Connection) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	logger := log.WithComponent("wsgateway")

	for {
		select {
		case e, ok := <-c.merged:
			if !ok {
				return
			}
			if !c.write(envelopeToFrame(e)) {
				return
			}
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if !c.write(frame) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn().Err(err).Msg("failed to write ping")
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Connection) write(frame outboundFrame) bool {
	logger := log.WithComponent("wsgateway")

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(frame); err != nil {
		logger.Warn().Err(err).Msg("failed to write frame")
		return false
	}
	return true
}

// readPump reads inbound text frames and translates them into a
// BuildRequest, handed off to handleBuild. It never writes to conn
// itself. Non-text frames other than close are ignored.
func (c *Connection) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	logger := log.WithComponent("wsgateway")

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warn().Err(err).Msg("failed to parse inbound frame")
			continue
		}
		if frame.Body.Build == nil {
			continue
		}

		c.handleBuild(frame.Body.Build.Blueprint)
	}
}

// handleBuild issues the build request on the bus and enqueues the
// reply onto send; writePump is the one that actually writes it out.
func (c *Connection) handleBuild(blueprint string) {
	logger := log.WithComponent("wsgateway")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := c.broker.Request(ctx, bus.NewRequest(
		"in:inventory:"+c.inventoryID.String(),
		bus.BuildRequest{InventoryID: c.inventoryID, BlueprintSlug: blueprint},
	))

	var outbound outboundFrame
	switch {
	case err != nil || reply == nil:
		outbound = outboundFrame{Success: false, Message: strPtr("build request failed")}
	default:
		outbound = envelopeToFrame(*reply)
	}

	select {
	case c.send <- outbound:
	default:
		logger.Warn().Msg("dropping build response for slow client")
	}
}
