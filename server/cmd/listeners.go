package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/julienstroheker/pairrelay/internal/azure/relay"
	"github.com/julienstroheker/pairrelay/internal/config"
	"github.com/julienstroheker/pairrelay/internal/logging"
	"github.com/julienstroheker/pairrelay/internal/transport"
	relayhttp "github.com/julienstroheker/pairrelay/server/http"
)

var (
	_ transport.TokenSource = (*relay.SASTokenSource)(nil)
	_ transport.TokenSource = (*relay.EntraTokenSource)(nil)
)

// buildListener opens the listener for the configured transport. The returned
// cleanup releases it and anything serving it.
func buildListener(ctx context.Context, c *config.Config, log *logging.Logger) (transport.Listener, func(), error) {
	switch c.Transport {
	case config.TransportTCP:
		l, err := transport.ListenTCP(c.ListenAddr)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil

	case config.TransportWebSocket:
		return buildWebSocketListener(c, log)

	case config.TransportAzureRelay:
		l, err := buildAzureRelayListener(ctx, c, log)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported transport: %q", c.Transport)
	}
}

func buildWebSocketListener(c *config.Config, log *logging.Logger) (transport.Listener, func(), error) {
	ln, err := net.Listen("tcp", c.ListenAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", c.ListenAddr, err)
	}

	ws := transport.NewWebSocketListener(&transport.WebSocketOptions{
		Addr:   ln.Addr().String(),
		Path:   c.WebSocketPath,
		Logger: log,
	})
	server := relayhttp.NewServer(&relayhttp.Options{
		Addr:           ln.Addr().String(),
		Transport:      c.Transport.String(),
		AdvertisedAddr: ws.Addr(),
		WebSocketPath:  c.WebSocketPath,
		WebSocket:      ws,
		Logger:         log,
	})

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", logging.Error(err))
			// Surfaces to the accept loop as a listener failure
			_ = ws.Close()
		}
	}()

	cleanup := func() {
		_ = ws.Close()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout())
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("HTTP server did not stop gracefully", logging.Error(err))
			_ = server.Close()
		}
	}
	return ws, cleanup, nil
}

func buildAzureRelayListener(ctx context.Context, c *config.Config, log *logging.Logger) (*transport.AzureRelayListener, error) {
	var tokens transport.TokenSource
	if c.UsesSAS() {
		log.Info("Using shared access key for Azure Relay", logging.String("key_name", c.AzureKeyName))
		tokens = relay.NewSASTokenSource(c.AzureNamespace, c.AzureHybridConnection, c.AzureKeyName, c.AzureKey, time.Hour)
	} else {
		log.Info("Using Entra ID for Azure Relay")
		entra, err := relay.NewEntraTokenSource(nil)
		if err != nil {
			return nil, err
		}
		tokens = entra
	}

	if c.ManagesHybridConnection() {
		manager, err := relay.NewManager(&relay.ManagerOptions{
			SubscriptionID:    c.AzureSubscriptionID,
			ResourceGroupName: c.AzureResourceGroup,
			NamespaceName:     c.AzureNamespace,
		})
		if err != nil {
			return nil, err
		}
		if err := manager.EnsureHybridConnection(ctx, c.AzureHybridConnection); err != nil {
			return nil, err
		}
		log.Info("Hybrid connection ready", logging.String("hybrid_connection", c.AzureHybridConnection))
	}

	return transport.NewAzureRelayListener(&transport.AzureRelayOptions{
		Namespace:        relay.NamespaceHost(c.AzureNamespace),
		HybridConnection: c.AzureHybridConnection,
		Tokens:           tokens,
		Logger:           log,
	})
}

func shutdownTimeout() time.Duration {
	if shutdownTimeoutFlag > 0 {
		return shutdownTimeoutFlag
	}
	return defaultShutdownTimeout
}
