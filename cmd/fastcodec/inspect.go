package main

import (
	"github.com/spf13/cobra"

	"fastcodec/internal/tui"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Launch the terminal UI for browsing templates and decoding messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return tui.NewApp(cfg, configPath).Run()
		},
	}
}
