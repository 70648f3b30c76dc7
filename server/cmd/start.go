package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienstroheker/pairrelay/internal/chat"
	"github.com/julienstroheker/pairrelay/internal/config"
	"github.com/julienstroheker/pairrelay/internal/logging"
	"github.com/julienstroheker/pairrelay/internal/transport"
	"github.com/julienstroheker/pairrelay/server/pairing"
	"github.com/julienstroheker/pairrelay/server/session"
	"github.com/shazow/rateio"
	"github.com/spf13/cobra"
)

const defaultShutdownTimeout = 5 * time.Second

var (
	listenFlag          string
	transportFlag       string
	wsPathFlag          string
	notifyTimeoutFlag   time.Duration
	shutdownTimeoutFlag time.Duration
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the relay",
	Long:  `Start the relay and pair incoming clients until interrupted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runRelay(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVarP(&listenFlag, "listen", "l", config.DefaultListenAddr, "Address to listen on")
	startCmd.Flags().StringVarP(&transportFlag, "transport", "t", string(config.TransportTCP),
		"Peer transport: tcp, websocket or azrelay")
	startCmd.Flags().StringVar(&wsPathFlag, "ws-path", "/chat", "HTTP path for the websocket transport")
	startCmd.Flags().DurationVar(&notifyTimeoutFlag, "notify-timeout", config.DefaultNotifyTimeout,
		"Time allowed for each shutdown notice")
	startCmd.Flags().DurationVar(&shutdownTimeoutFlag, "shutdown-timeout", defaultShutdownTimeout,
		"Graceful shutdown timeout for the HTTP server")
}

// applyFlags copies explicitly set flags over the environment configuration
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		c.ListenAddr = listenFlag
	}
	if flags.Changed("transport") {
		c.Transport = config.Transport(transportFlag)
	}
	if flags.Changed("ws-path") {
		c.WebSocketPath = wsPathFlag
	}
	if flags.Changed("notify-timeout") {
		c.NotifyTimeout = notifyTimeoutFlag
	}
}

// runRelay serves pairs until ctx is cancelled or the listener fails
func runRelay(ctx context.Context, c *config.Config, log *logging.Logger) error {
	listener, cleanup, err := buildListener(ctx, c, log)
	if err != nil {
		return err
	}
	defer cleanup()

	return serve(ctx, listener, c, log)
}

func serve(ctx context.Context, listener transport.Listener, c *config.Config, log *logging.Logger) error {
	if c.ReadLimitBytes > 0 {
		log.Info("Rate limiting peer reads",
			logging.Int("bytes", c.ReadLimitBytes),
			logging.Duration("period", c.ReadLimitPeriod))
		listener = transport.RateLimited(listener, func() rateio.Limiter {
			return rateio.NewSimpleLimiter(c.ReadLimitBytes, c.ReadLimitPeriod)
		})
	}

	server, err := pairing.NewServer(&pairing.Options{
		Listener: listener,
		Sessions: session.NewCoordinator(&session.CoordinatorOptions{
			NotifyTimeout: c.NotifyTimeout,
			Logger:        log,
		}),
		Channel: &chat.ChannelOptions{MaxMessageBytes: c.MaxMessageBytes},
		Logger:  log,
	})
	if err != nil {
		return err
	}

	return server.Run(ctx)
}
