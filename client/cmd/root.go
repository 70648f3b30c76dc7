package cmd

import (
	"fmt"
	"os"

	"github.com/julienstroheker/pairrelay/internal/logging"
	"github.com/spf13/cobra"
)

var (
	logger      *logging.Logger
	verboseFlag bool
	jsonFlag    bool
)

var rootCmd = &cobra.Command{
	Use:          "pairchat",
	Short:        "Chat client for pairrelay",
	Long:         `pairchat - connect to a pairrelay server and chat with the peer it pairs you with`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Chat output goes to stdout, so logs stay quiet unless asked for
		level := logging.WarnLevel
		if verboseFlag {
			level = logging.DebugLevel
		}

		format := logging.FormatConsole
		if jsonFlag {
			format = logging.FormatJSON
		}

		logger = logging.NewWithOutput(level, cmd.ErrOrStderr())
		logger.SetFormat(format)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging (debug level)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Output logs in JSON format")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetLogger returns the global logger instance
func GetLogger() *logging.Logger {
	return logger
}
