package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/service/config"
	"github.com/khaledhikmat/vs-live/service/lgr"
)

// Version is the application version.
const Version = "0.1.0"

// cfgSvc is shared by all subcommands
var cfgSvc config.IService

var rootCmd = &cobra.Command{
	Use:           "vs-live",
	Short:         "Live suspect detection agent",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load env vars if we are in DEV mode
		if env := os.Getenv("RUN_TIME_ENV"); env == "dev" || env == "" {
			err := godotenv.Load()
			switch {
			case err == nil:
				lgr.Logger.Info("loaded env vars from .env file")
			case errors.Is(err, fs.ErrNotExist):
				lgr.Logger.Debug("no .env file, using the environment as is")
			default:
				return xerrors.Errorf("error loading .env file: %w", err)
			}
		}

		var err error
		cfgSvc, err = config.NewEnv()
		if err != nil {
			return err
		}

		lgr.Init(cfgSvc.GetLogLevel(), cfgSvc.GetLogFile())
		return nil
	},
}

func Execute() {
	// Ctrl+C or SIGTERM cancel the command context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		lgr.Logger.Error("command failed", slog.Any("error", lgr.Err(err)))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
