// Package wsgateway is the WebSocket front door: per connection it
// resolves the caller's inventory, fans bus deliveries on a handful of
// topics out to the socket, and turns inbound text frames into bus
// requests. Grounded on the gorilla/websocket upgrader-plus-pump idiom
// used throughout the reference pack.
package wsgateway
