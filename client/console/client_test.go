package console

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienstroheker/pairrelay/internal/chat"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startClient(t *testing.T, in io.Reader, out io.Writer) (*chat.Channel, <-chan error) {
	t.Helper()

	clientSide, relaySide := net.Pipe()
	relay := chat.NewChannel(relaySide, nil)
	t.Cleanup(func() { _ = relay.Close() })

	client := NewClient(clientSide, &Options{Name: "alice", Output: out})
	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background(), in) }()
	return relay, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
		return nil
	}
}

func TestClient_SendsAndPrints(t *testing.T) {
	in, stdin := io.Pipe()
	defer func() { _ = stdin.Close() }()
	out := &syncBuffer{}

	relay, done := startClient(t, in, out)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() { _, _ = io.WriteString(stdin, "hello bob\n\n") }()

	m, err := relay.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "alice", m.Sender)
	require.Equal(t, "hello bob", m.Content)

	require.NoError(t, relay.Write(ctx, chat.NewMessage("bob", "hi alice")))
	require.NoError(t, relay.Write(ctx, chat.SystemMessage(chat.NoticePeerDisconnected)))
	require.NoError(t, relay.Close())

	require.NoError(t, waitDone(t, done))

	output := out.String()
	require.Contains(t, output, "bob : hi alice")
	require.Contains(t, output, "Server : PEER DISCONNECTED")
	require.True(t, strings.HasSuffix(output, "Disconnected from relay.\n"), output)
}

func TestClient_Quit(t *testing.T) {
	relay, done := startClient(t, strings.NewReader("/quit\nnever sent\n"), io.Discard)

	require.NoError(t, waitDone(t, done))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m, err := relay.Read(ctx)
	require.NoError(t, err)
	require.Nil(t, m, "relay should see a clean close")
}

func TestClient_InputEndsSession(t *testing.T) {
	_, done := startClient(t, strings.NewReader(""), io.Discard)
	require.NoError(t, waitDone(t, done))
}

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			_ = conn.Close()
		}
	}()

	conn, err := Dial(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	_ = conn.Close()

	_, err = Dial(context.Background(), "carrier-pigeon", "somewhere")
	require.ErrorContains(t, err, "unsupported transport")
}
