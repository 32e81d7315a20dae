package bus

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the immutable carrier published and delivered on the bus.
type Envelope struct {
	ID        uuid.UUID
	Topic     string
	IsRequest bool
	Timestamp int64 // Unix milliseconds
	Body      Body
}

// NewEnvelope builds an envelope with a fresh id and the current timestamp.
func NewEnvelope(topic string, body Body) Envelope {
	return Envelope{
		ID:        uuid.New(),
		Topic:     topic,
		Timestamp: time.Now().UnixMilli(),
		Body:      body,
	}
}

// NewRequest builds an envelope with the request flag set.
func NewRequest(topic string, body Body) Envelope {
	e := NewEnvelope(topic, body)
	e.IsRequest = true
	return e
}

// ReplyTopic derives the ephemeral reply topic for a request id. It is a
// function only of the id, per the envelope's id field, and is the sole
// coupling between the request/reply overlay and the envelope.
func ReplyTopic(id uuid.UUID) string {
	return "reply-" + id.String()
}

// Body is the closed set of message payloads the broker recognizes. The
// broker itself never inspects a Body; only actors do. The unexported
// marker method seals the set to the variants declared in this package.
type Body interface {
	isBody()
}

// Stop is the lifecycle sentinel. Its topic, if any, is ignored; the
// dispatcher consumes it and never forwards it to subscribers.
type Stop struct{}

func (Stop) isBody() {}

// Empty carries no data; used for diagnostics and tests.
type Empty struct{}

func (Empty) isBody() {}

// DebugMessage carries a free-form diagnostic string.
type DebugMessage struct {
	Text string
}

func (DebugMessage) isBody() {}

// Tick is the heartbeat body published by the ticker on topic "ticks".
type Tick struct {
	Seq       uint64
	Timestamp int64
}

func (Tick) isBody() {}

// AuthenticationRequest asks the auth actor to authenticate a user.
type AuthenticationRequest struct {
	User     string
	Password string
}

func (AuthenticationRequest) isBody() {}

// AuthenticationResponse carries exactly one of Token or Err.
type AuthenticationResponse struct {
	Token string
	Err   string
}

func (AuthenticationResponse) isBody() {}

// BuildRequest asks an inventory actor to start construction of a
// building from a blueprint.
type BuildRequest struct {
	InventoryID   uuid.UUID
	BlueprintSlug string
}

func (BuildRequest) isBody() {}

// BuildResponse carries exactly one of BuildingID or Err.
type BuildResponse struct {
	BuildingID uuid.UUID
	Err        string
}

func (BuildResponse) isBody() {}

// PersistenceQueryRequest wraps a Query for the persistence gateway.
type PersistenceQueryRequest struct {
	Query Query
}

func (PersistenceQueryRequest) isBody() {}

// PersistenceQueryResponse wraps the QueryResponse matching the request.
type PersistenceQueryResponse struct {
	Response QueryResponse
}

func (PersistenceQueryResponse) isBody() {}
