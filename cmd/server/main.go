package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/incal-auth/internal/config"
	"github.com/jrsteele09/incal-auth/rp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeLoginRequired indicates stored tokens are gone and a new login is needed.
	ExitCodeLoginRequired = 2
	// ExitCodePasswordMismatch is returned by check-password when the hash does not match.
	ExitCodePasswordMismatch = 3
)

var errPasswordMismatch = errors.New("password does not match hash")

var envFile string

// rootCmd is the entry point when the binary is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "incal-auth",
	Short: "INCAL authorization server",
	Long: `incal-auth issues OAuth2 authorization codes (with PKCE), access tokens
and rotating refresh tokens to the INCAL dashboard and satellite apps.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading configuration")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHashPasswordCmd())
	rootCmd.AddCommand(newCheckPasswordCmd())
	rootCmd.AddCommand(newLoginCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, rp.ErrLoginRequired):
		return ExitCodeLoginRequired
	case errors.Is(err, errPasswordMismatch):
		return ExitCodePasswordMismatch
	}
	return ExitCodeError
}

// setupLogging configures the global zerolog logger: a coloured console
// writer in DEV, JSON lines everywhere else.
func setupLogging(cfg config.EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", cfg.GetAppName()).Logger()
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
