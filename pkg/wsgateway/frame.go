package wsgateway

import "github.com/cuemby/busline/pkg/bus"

// inboundFrame is the one shape a client may send: a request to start
// construction of a building. Per the wire contract, a text frame looks
// like {"body": {"build": {"blueprint": "<slug>"}}}.
type inboundFrame struct {
	Body struct {
		Build *struct {
			Blueprint string `json:"blueprint"`
		} `json:"build"`
	} `json:"body"`
}

// outboundFrame is the compact response envelope every outbound frame
// takes, whether it originates from a fanned-in bus delivery or from a
// direct reply to an inbound request.
type outboundFrame struct {
	ID      string  `json:"id"`
	Success bool    `json:"success"`
	Message *string `json:"message,omitempty"`
}

func strPtr(s string) *string { return &s }

// envelopeToFrame converts a bus delivery into the wire response shape.
// Known *Response variants surface their Err field as the outbound
// message and flip Success accordingly; every other body is reported as
// a bare success with no message.
func envelopeToFrame(e bus.Envelope) outboundFrame {
	frame := outboundFrame{ID: e.ID.String(), Success: true}

	switch body := e.Body.(type) {
	case bus.AuthenticationResponse:
		if body.Err != "" {
			frame.Success = false
			frame.Message = strPtr(body.Err)
		} else {
			frame.Message = strPtr(body.Token)
		}
	case bus.BuildResponse:
		if body.Err != "" {
			frame.Success = false
			frame.Message = strPtr(body.Err)
		} else {
			frame.Message = strPtr(body.BuildingID.String())
		}
	}

	return frame
}
