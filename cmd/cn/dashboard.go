package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Serve a real-time WebSocket view of the cache",
	Long: `Start a WebSocket dashboard server that streams cache snapshots.

Every client receives the current schedules, reminders and table counts on
connect and again whenever the cache changes. Pass ?course=<id> to also
follow the notes of one course.

Messages:
- schedules: class schedule of the signed-in user
- reminders: reminders of the signed-in user
- notes: notes of the requested course
- stats: row counts per table

Example usage:
  cn dashboard                   # Start on dashboard.port (default 8080)
  cn dashboard --port 9000       # Start on custom port

Connect with a WebSocket client:
  ws://localhost:8080/ws?course=12`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Dashboard.Port, _ = cmd.Flags().GetInt("port")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		server, stop, err := startDashboard(ctx, a)
		if err != nil {
			return err
		}

		addr := server.GetAddr()
		fmt.Fprintf(cmd.OutOrStdout(), "Dashboard server started on http://%s\n", addr)
		fmt.Fprintf(cmd.OutOrStdout(), "WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Fprintf(cmd.OutOrStdout(), "Health check: http://%s/health\n", addr)
		fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down dashboard server...")
		if err := stop(); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Dashboard server stopped")
		return nil
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on")

	rootCmd.AddCommand(dashboardCmd)
}
