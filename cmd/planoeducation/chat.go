package main

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/planoeducation/planoeducation/internal/client"
	"github.com/planoeducation/planoeducation/internal/tui"
)

func chatCmd() *cobra.Command {
	var style string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive terminal chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			// The alternate screen owns the terminal.
			logrus.SetOutput(io.Discard)
			session := client.NewSession(client.New(cfg.ServerURL, nil))
			return tui.Run(cmd.Context(), session, tui.Options{GlamourStyle: style})
		},
	}

	cmd.Flags().StringVar(&style, "style", "", "glamour style for answers (dark, light, notty); auto-detected when empty")

	return cmd
}
