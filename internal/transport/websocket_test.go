package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newWebSocketServer(t *testing.T) (*WebSocketListener, string) {
	t.Helper()
	listener := NewWebSocketListener(&WebSocketOptions{Path: "/chat"})
	mux := http.NewServeMux()
	mux.Handle("/chat", listener)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = listener.Close()
		srv.Close()
	})
	return listener, "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat"
}

func TestWebSocketListener_RoundTrip(t *testing.T) {
	listener, url := newWebSocketServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialed := make(chan Conn, 1)
	go func() {
		conn, err := DialWebSocket(ctx, url)
		if err != nil {
			t.Errorf("DialWebSocket failed: %v", err)
			close(dialed)
			return
		}
		dialed <- conn
	}()

	server, err := listener.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	defer server.Close()

	client, ok := <-dialed
	if !ok {
		t.FailNow()
	}
	defer client.Close()

	if _, err := client.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Small buffer forces the remainder of the message to be kept for the next Read
	first := make([]byte, 5)
	if _, err := io.ReadFull(server, first); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	rest := make([]byte, 6)
	if _, err := io.ReadFull(server, rest); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := string(first) + string(rest); got != "hello world" {
		t.Errorf("Expected 'hello world', got: %q", got)
	}
}

func TestWebSocketConn_CloseIsEOF(t *testing.T) {
	listener, url := newWebSocketServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		conn, err := DialWebSocket(ctx, url)
		if err != nil {
			return
		}
		_ = conn.Close()
	}()

	server, err := listener.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	defer server.Close()

	buf := make([]byte, 1)
	if _, err := server.Read(buf); err != io.EOF {
		t.Errorf("Expected io.EOF after normal closure, got: %v", err)
	}
}

func TestWebSocketListener_AcceptCancelled(t *testing.T) {
	listener, _ := newWebSocketServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := listener.Accept(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got: %v", err)
	}
}

func TestWebSocketListener_Closed(t *testing.T) {
	listener, url := newWebSocketServer(t)
	_ = listener.Close()

	if _, err := listener.Accept(context.Background()); err != ErrListenerClosed {
		t.Errorf("Expected ErrListenerClosed, got: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := DialWebSocket(ctx, url); err == nil {
		t.Error("Expected dial to fail once the listener is closed")
	}
}
