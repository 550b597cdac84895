// Command chatinsights builds support-chat reports from session exports or a
// local session database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "chatinsights",
	Short: "Analyze support chat sessions",
	Long: `chatinsights computes statistics, insights and AI conversation reports
from support chat sessions stored in JSON/YAML exports or a SQLite database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			logger.SetLevel(logger.ParseLevel(logLevel))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
