// Package transport provides the byte-stream listeners peers connect through.
//
// Every transport yields Conn values: an io.ReadWriteCloser with read and write
// deadlines, which is what chat.Channel needs to interrupt blocked operations.
//
// # Listeners
//
// TCPListener accepts plain TCP connections.
//
// WebSocketListener is an http.Handler that upgrades requests and exposes each
// socket as a stream of binary messages.
//
// AzureRelayListener listens on an Azure Relay Hybrid Connection control channel
// and accepts each rendezvous WebSocket as a peer.
//
// MemoryListener pairs in-process pipes and is meant for tests.
//
// # Usage Example
//
//	listener, err := transport.ListenTCP(":5000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer listener.Close()
//
//	conn, err := listener.Accept(ctx)
//	if errors.Is(err, context.Canceled) {
//	    return nil
//	}
package transport
