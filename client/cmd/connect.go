package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/julienstroheker/pairrelay/client/console"
	"github.com/julienstroheker/pairrelay/internal/logging"
	"github.com/spf13/cobra"
)

const (
	defaultAddr        = "localhost:5000"
	defaultDialTimeout = 10 * time.Second
)

var (
	addrFlag      string
	transportFlag string
	nameFlag      string
	timeoutFlag   time.Duration
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a relay and chat",
	Long: `Connect to a relay and chat. Each line typed is sent to the paired peer;
type /quit or close stdin to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runConnect(ctx, cmd)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVarP(&addrFlag, "addr", "a", defaultAddr,
		"Relay address (host:port, or ws://host:port/chat for websocket)")
	connectCmd.Flags().StringVarP(&transportFlag, "transport", "t", "tcp", "Transport: tcp or websocket")
	connectCmd.Flags().StringVarP(&nameFlag, "name", "n", defaultName(), "Name shown to your peer")
	connectCmd.Flags().DurationVar(&timeoutFlag, "dial-timeout", defaultDialTimeout, "Time allowed to reach the relay")
}

func runConnect(ctx context.Context, cmd *cobra.Command) error {
	log := GetLogger()
	addr := dialAddr(transportFlag, addrFlag)

	dialCtx, cancel := context.WithTimeout(ctx, timeoutFlag)
	defer cancel()

	log.Debug("Dialing relay",
		logging.String("transport", transportFlag),
		logging.String("addr", addr))
	conn, err := console.Dial(dialCtx, transportFlag, addr)
	if err != nil {
		return err
	}

	cmd.Printf("Connected to %s as %s. Waiting for a peer...\n", addr, nameFlag)

	client := console.NewClient(conn, &console.Options{
		Name:   nameFlag,
		Output: cmd.OutOrStdout(),
		Logger: log,
	})
	return client.Run(ctx, cmd.InOrStdin())
}

// dialAddr turns a bare host:port into a websocket URL when needed
func dialAddr(transport, addr string) string {
	if transport != "websocket" || strings.Contains(addr, "://") {
		return addr
	}
	return fmt.Sprintf("ws://%s/chat", addr)
}

func defaultName() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anonymous"
}
