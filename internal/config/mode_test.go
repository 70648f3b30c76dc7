package config

import "testing"

func TestTransport_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		transport Transport
		want      bool
	}{
		{name: "tcp is valid", transport: TransportTCP, want: true},
		{name: "websocket is valid", transport: TransportWebSocket, want: true},
		{name: "azure relay is valid", transport: TransportAzureRelay, want: true},
		{name: "unknown transport", transport: Transport("udp"), want: false},
		{name: "empty transport", transport: Transport(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.transport.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransport_String(t *testing.T) {
	if TransportWebSocket.String() != "websocket" {
		t.Errorf("Expected 'websocket', got: %s", TransportWebSocket.String())
	}
}
