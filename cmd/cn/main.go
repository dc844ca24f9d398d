// Command cn is the campusnote command line client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campusnote/campusnote/internal/config"
)

var (
	configFile string
	outputFlag string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cn",
	Short: "Class schedules, notes and reminders with an offline cache",
	Long: `cn keeps a local cache of your class schedule, course notes and
reminders in sync with the campus API.

Reads always come from the cache; "sync" subcommands refresh it. Writes go
to the server first and are mirrored locally once accepted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFlag {
		case outputText, outputJSON, outputYAML:
		default:
			return fmt.Errorf("unknown output format %q", outputFlag)
		}

		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		initColor(os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "advanced", Title: "Background services:"},
	)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $HOME/.config/campusnote/campusnote.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", outputText, "output format: text, json or yaml")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
