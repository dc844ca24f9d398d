package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusnote/campusnote/internal/cache"
)

type statusView struct {
	Config    string         `json:"config,omitempty" yaml:"config,omitempty"`
	API       string         `json:"api" yaml:"api"`
	User      string         `json:"user,omitempty" yaml:"user,omitempty"`
	Expired   bool           `json:"expired,omitempty" yaml:"expired,omitempty"`
	Cache     string         `json:"cache" yaml:"cache"`
	CacheSize int64          `json:"cache_size" yaml:"cache_size"`
	Rows      map[string]int `json:"rows" yaml:"rows"`
	Files     string         `json:"files" yaml:"files"`
	Local     int            `json:"local_files" yaml:"local_files"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, session and cache status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.db.Stats(cmd.Context())
		if err != nil {
			return err
		}
		state := a.sess.Current()

		view := statusView{
			Config:  cfg.File,
			API:     a.client.BaseURL(),
			User:    state.UserID,
			Expired: state.Expired(time.Now()),
			Cache:   a.db.Path(),
			Rows:    make(map[string]int, len(counts)),
			Files:   a.files.Dir(),
			Local:   len(a.files.FileIDs()),
		}
		if info, err := os.Stat(a.db.Path()); err == nil {
			view.CacheSize = info.Size()
		}
		for t, n := range counts {
			view.Rows[string(t)] = n
		}

		return emit(cmd.OutOrStdout(), view, func(w io.Writer) {
			switch {
			case view.User == "":
				fmt.Fprintf(w, "%s Not signed in\n", renderWarn("⚠"))
			case view.Expired:
				fmt.Fprintf(w, "%s Signed in as user %s (token expired)\n", renderWarn("⚠"), view.User)
			default:
				fmt.Fprintf(w, "%s Signed in as user %s\n", renderPass("✓"), view.User)
			}
			fmt.Fprintf(w, "   API: %s\n", view.API)
			if view.Config != "" {
				fmt.Fprintf(w, "   Config: %s\n", view.Config)
			}
			fmt.Fprintf(w, "   Cache: %s (%.1f KB)\n", view.Cache, float64(view.CacheSize)/1024)
			for _, t := range cache.Tables {
				fmt.Fprintf(w, "     %-15s %d\n", string(t)+":", view.Rows[string(t)])
			}
			fmt.Fprintf(w, "   Files: %s (%d local copies)\n", view.Files, view.Local)
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
