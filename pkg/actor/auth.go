package actor

import (
	"context"
	"time"

	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/log"
	"github.com/cuemby/busline/pkg/security"
)

// tokenTTL bounds how long an issued session token is valid for.
const tokenTTL = 24 * time.Hour

// requestTimeout bounds how long the auth actor waits on the
// persistence gateway before giving up on one authentication attempt.
const requestTimeout = 5 * time.Second

// AuthActor answers AuthenticationRequest bodies on the "auth" topic by
// delegating credential verification to the persistence gateway and, on
// success, minting a session token. It never logs the password field.
type AuthActor struct {
	broker *bus.Broker
	tokens *security.TokenManager
}

// NewAuthActor constructs an AuthActor bound to broker and tokens.
func NewAuthActor(broker *bus.Broker, tokens *security.TokenManager) *AuthActor {
	return &AuthActor{broker: broker, tokens: tokens}
}

// Run subscribes to "auth" and serves requests until the broker stops.
func (a *AuthActor) Run() error {
	return Run(a.broker, "^auth$", a.handle)
}

func (a *AuthActor) handle(e bus.Envelope) {
	req, ok := e.Body.(bus.AuthenticationRequest)
	if !ok {
		return
	}

	logger := log.WithComponent("actor.auth")
	logger.Debug().Str("user", req.User).Msg("authentication attempt")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	reply, err := a.broker.Request(ctx, bus.NewRequest("persistence", bus.PersistenceQueryRequest{
		Query: bus.AuthenticateUser{User: req.User, Password: req.Password},
	}))
	resp := a.resolve(req.User, reply, err)

	if sendErr := a.broker.Send(bus.NewEnvelope(bus.ReplyTopic(e.ID), resp)); sendErr != nil {
		logger.Warn().Err(sendErr).Msg("failed to publish authentication response")
	}
}

func (a *AuthActor) resolve(user string, reply *bus.Envelope, err error) bus.AuthenticationResponse {
	if err != nil {
		return bus.AuthenticationResponse{Err: "authentication failed"}
	}
	if reply == nil {
		return bus.AuthenticationResponse{Err: "authentication failed"}
	}

	persistResp, ok := reply.Body.(bus.PersistenceQueryResponse)
	if !ok {
		return bus.AuthenticationResponse{Err: "authentication failed"}
	}
	result, ok := persistResp.Response.(bus.AuthenticateUserResult)
	if !ok || result.Err != "" {
		return bus.AuthenticationResponse{Err: "authentication failed"}
	}

	token, err := a.tokens.Issue(user, tokenTTL)
	if err != nil {
		return bus.AuthenticationResponse{Err: "authentication failed"}
	}
	return bus.AuthenticationResponse{Token: token}
}
