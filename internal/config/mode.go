package config

// Transport selects how peers reach the relay
type Transport string

const (
	// TransportTCP accepts raw TCP connections
	TransportTCP Transport = "tcp"

	// TransportWebSocket accepts WebSocket upgrades on an HTTP endpoint
	TransportWebSocket Transport = "websocket"

	// TransportAzureRelay accepts peers through an Azure Relay Hybrid Connection
	TransportAzureRelay Transport = "azrelay"
)

// IsValid checks if the transport is known
func (t Transport) IsValid() bool {
	return t == TransportTCP || t == TransportWebSocket || t == TransportAzureRelay
}

// String returns the string representation
func (t Transport) String() string {
	return string(t)
}
