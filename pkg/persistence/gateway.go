package persistence

import (
	"sync"

	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/log"
)

// GatewayState tracks the persistence gateway's own small lifecycle,
// separate from the broker's.
type GatewayState int

const (
	// Initialized is the state immediately after NewGateway, before Run
	// has subscribed to the persistence topic.
	Initialized GatewayState = iota
	// Listening is the steady-state once the subscription is live.
	Listening
)

func (s GatewayState) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Listening:
		return "listening"
	default:
		return "unknown"
	}
}

// workerCount bounds how many queries the gateway services concurrently.
// Store calls block on disk I/O; running them off the single dispatcher
// goroutine keeps a slow query from stalling unrelated bus traffic.
const workerCount = 4

// Gateway is the persistence actor: it subscribes to the literal topic
// "persistence", answers every PersistenceQueryRequest it receives by
// delegating to a Store, and replies on the request's reply topic.
type Gateway struct {
	broker *bus.Broker
	store  Store

	mu    sync.RWMutex
	state GatewayState
}

// NewGateway constructs a Gateway bound to broker and store. Call Run to
// begin serving.
func NewGateway(broker *bus.Broker, store Store) *Gateway {
	return &Gateway{broker: broker, store: store, state: Initialized}
}

// Status reports the gateway's own lifecycle state. Safe to call from
// any goroutine, including a concurrent health checker.
func (g *Gateway) Status() GatewayState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Gateway) setState(s GatewayState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Run subscribes to the persistence topic and services queries until
// the delivery channel is closed (the broker has stopped). It blocks
// and is meant to be run in its own goroutine.
func (g *Gateway) Run() error {
	_, ch, err := g.broker.Subscribe("^persistence$")
	if err != nil {
		return err
	}
	g.setState(Listening)
	logger := log.WithComponent("persistence")
	logger.Info().Msg("persistence gateway listening")

	jobs := make(chan bus.Envelope, workerCount)
	done := make(chan struct{})
	for i := 0; i < workerCount; i++ {
		go g.worker(jobs, done)
	}

	for e := range ch {
		jobs <- e
	}
	close(jobs)
	for i := 0; i < workerCount; i++ {
		<-done
	}
	return nil
}

func (g *Gateway) worker(jobs <-chan bus.Envelope, done chan<- struct{}) {
	for e := range jobs {
		g.handle(e)
	}
	done <- struct{}{}
}

func (g *Gateway) handle(e bus.Envelope) {
	req, ok := e.Body.(bus.PersistenceQueryRequest)
	if !ok {
		return
	}

	resp := g.answer(req.Query)

	reply := bus.NewEnvelope(bus.ReplyTopic(e.ID), bus.PersistenceQueryResponse{Response: resp})
	if err := g.broker.Send(reply); err != nil {
		log.WithComponent("persistence").Warn().Err(err).Msg("failed to publish query response")
	}
}

func (g *Gateway) answer(q bus.Query) bus.QueryResponse {
	switch query := q.(type) {
	case bus.AuthenticateUser:
		invID, err := g.store.AuthenticateUser(query.User, query.Password)
		if err != nil {
			return bus.AuthenticateUserResult{Err: err.Error()}
		}
		return bus.AuthenticateUserResult{InventoryID: invID}

	case bus.ListInventoryIDs:
		ids, err := g.store.ListInventoryIDs()
		if err != nil {
			return bus.ListInventoryIDsResult{Err: err.Error()}
		}
		return bus.ListInventoryIDsResult{IDs: ids}

	case bus.GetInventoryForUser:
		invID, err := g.store.GetInventoryForUser(query.User)
		if err != nil {
			return bus.GetInventoryForUserResult{Err: err.Error()}
		}
		return bus.GetInventoryForUserResult{InventoryID: invID}

	case bus.CreateBuilding:
		buildingID, err := g.store.CreateBuilding(query.InventoryID, query.BlueprintSlug)
		if err != nil {
			return bus.CreateBuildingResult{Err: err.Error()}
		}
		return bus.CreateBuildingResult{BuildingID: buildingID}

	case bus.ProgressBuildings:
		completed, err := g.store.ProgressBuildings(query.InventoryID)
		if err != nil {
			return bus.ProgressBuildingsResult{Err: err.Error()}
		}
		return bus.ProgressBuildingsResult{Completed: completed}

	default:
		return nil
	}
}
