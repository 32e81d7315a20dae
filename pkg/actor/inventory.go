package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/log"
)

// InventoryActor owns one inventory's build commands and tick-driven
// progress. One instance exists per inventory id for as long as that
// inventory is active.
type InventoryActor struct {
	broker      *bus.Broker
	inventoryID uuid.UUID
}

// NewInventoryActor constructs an InventoryActor for inventoryID.
func NewInventoryActor(broker *bus.Broker, inventoryID uuid.UUID) *InventoryActor {
	return &InventoryActor{broker: broker, inventoryID: inventoryID}
}

// Run subscribes to this inventory's command topic and to the shared
// ticks topic, merges the two delivery queues, and serves both until
// the broker stops.
func (a *InventoryActor) Run() error {
	commandID, commands, err := a.broker.Subscribe("^in:inventory:" + a.inventoryID.String() + "$")
	if err != nil {
		return err
	}
	defer a.broker.Unsubscribe(commandID)

	tickID, ticks, err := a.broker.Subscribe("^ticks$")
	if err != nil {
		return err
	}
	defer a.broker.Unsubscribe(tickID)

	for e := range Merge(commands, ticks) {
		a.handle(e)
	}
	return nil
}

func (a *InventoryActor) handle(e bus.Envelope) {
	switch body := e.Body.(type) {
	case bus.BuildRequest:
		a.handleBuild(e, body)
	case bus.Tick:
		a.handleTick()
	}
}

func (a *InventoryActor) handleBuild(e bus.Envelope, body bus.BuildRequest) {
	logger := log.WithComponent("actor.inventory").With().Str("inventory_id", a.inventoryID.String()).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	reply, err := a.broker.Request(ctx, bus.NewRequest("persistence", bus.PersistenceQueryRequest{
		Query: bus.CreateBuilding{InventoryID: body.InventoryID, BlueprintSlug: body.BlueprintSlug},
	}))

	resp := buildResponse(reply, err)
	if sendErr := a.broker.Send(bus.NewEnvelope(bus.ReplyTopic(e.ID), resp)); sendErr != nil {
		logger.Warn().Err(sendErr).Msg("failed to publish build response")
	}
}

func buildResponse(reply *bus.Envelope, err error) bus.BuildResponse {
	if err != nil || reply == nil {
		return bus.BuildResponse{Err: "build request failed"}
	}
	persistResp, ok := reply.Body.(bus.PersistenceQueryResponse)
	if !ok {
		return bus.BuildResponse{Err: "build request failed"}
	}
	result, ok := persistResp.Response.(bus.CreateBuildingResult)
	if !ok {
		return bus.BuildResponse{Err: "build request failed"}
	}
	if result.Err != "" {
		return bus.BuildResponse{Err: result.Err}
	}
	return bus.BuildResponse{BuildingID: result.BuildingID}
}

// handleTick fires a fire-and-forget progress request: the inventory
// actor does not wait for, or act on, its result.
func (a *InventoryActor) handleTick() {
	logger := log.WithComponent("actor.inventory").With().Str("inventory_id", a.inventoryID.String()).Logger()

	err := a.broker.Send(bus.NewEnvelope("persistence", bus.PersistenceQueryRequest{
		Query: bus.ProgressBuildings{InventoryID: a.inventoryID},
	}))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to publish progress request")
	}
}
