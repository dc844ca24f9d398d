package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/campusnote/campusnote/internal/alarm"
	"github.com/campusnote/campusnote/internal/daemon"
	"github.com/campusnote/campusnote/internal/dashboard"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "advanced",
	Short:   "Keep the cache fresh and raise class and reminder alarms",
	Long: `Run the background daemon in the foreground.

The daemon:
  1. Refreshes schedules and reminders of the signed-in user on start and
     every daemon.refresh_interval
  2. Arms an alarm for every class (07:00 on its day) and open reminder
  3. Follows the session file, so 'cn login' as another user re-scopes it

With --dashboard the WebSocket dashboard is served from the same process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		notifier := daemon.LogNotifier{Logger: a.logger("notify")}
		sched := alarm.NewScheduler(
			daemon.Dispatcher(a.sess, notifier, a.logger("alarm")),
			&alarm.Config{Logger: a.logger("alarm")},
		)
		a.useAlarms(sched)

		d, err := daemon.New(daemon.Deps{
			Schedules: a.schedules,
			Reminders: a.reminders,
			Session:   a.sess,
			Scheduler: sched,
			Store:     a.store,
		}, &daemon.Config{
			RefreshInterval: cfg.Daemon.RefreshInterval,
			Logger:          a.logger("daemon"),
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var wg sync.WaitGroup
		var dashErr error
		if withDashboard, _ := cmd.Flags().GetBool("dashboard"); withDashboard {
			server, stop, err := startDashboard(ctx, a)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard on http://%s\n", server.GetAddr())
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-ctx.Done()
				dashErr = stop()
			}()
		}

		if !a.sess.Current().SignedIn() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s not signed in; waiting for 'cn login'\n", renderWarn("⚠"))
		}
		err = d.Run(ctx)
		wg.Wait()
		return errors.Join(err, dashErr)
	},
}

// startDashboard serves the dashboard for a's cache until stop is called.
func startDashboard(ctx context.Context, a *app) (*dashboard.Server, func() error, error) {
	server := dashboard.NewServer(&dashboard.Config{
		Port:   cfg.Dashboard.Port,
		Logger: a.logger("dashboard"),
	})
	handler := dashboard.NewHandler(server, a.db, a.sess, a.logger("dashboard"))

	hctx, cancel := context.WithCancel(ctx)
	done := handler.Start(hctx)

	if err := server.Start(); err != nil {
		cancel()
		<-done
		return nil, nil, fmt.Errorf("failed to start dashboard: %w", err)
	}

	stop := func() error {
		cancel()
		<-done
		return server.Stop()
	}
	return server, stop, nil
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "also serve the WebSocket dashboard")

	rootCmd.AddCommand(daemonCmd)
}
