package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kuitang/quicknotes/internal/config"
	"github.com/kuitang/quicknotes/internal/obs"
	"github.com/kuitang/quicknotes/internal/tui"
)

func tuiCmd() *cobra.Command {
	var flags config.Flags
	var logFile string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal notes client",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigFile = configFile
			cfg, err := config.LoadConfig(flags)
			if err != nil {
				return err
			}
			if logFile != "" {
				cfg.LogFile = logFile
			}

			// Log lines would corrupt the screen, so they go to a file or nowhere.
			var w io.Writer = io.Discard
			if cfg.LogFile != "" {
				f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			obs.InitWithWriter(w, slog.LevelDebug)

			return tui.Run(cfg.APIURL)
		},
	}
	cmd.Flags().StringVar(&flags.APIURL, "api-url", "", "notes API base URL (default $API_URL or http://localhost:8080)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file (default $LOG_FILE, otherwise discarded)")
	return cmd
}
