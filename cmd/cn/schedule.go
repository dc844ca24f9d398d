package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/campusnote/campusnote/internal/cache"
	"github.com/campusnote/campusnote/internal/schema"
)

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	Aliases: []string{"schedules", "sched"},
	GroupID: "data",
	Short:   "Class schedule of the signed-in user",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached schedule entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if doSync, _ := cmd.Flags().GetBool("sync"); doSync {
			if err := a.schedules.Refresh(cmd.Context(), nil); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s showing cached schedule: %v\n", renderWarn("⚠"), err)
			}
		}

		rows, err := a.schedules.List(cmd.Context(), nil)
		if err != nil {
			return err
		}
		views := make([]schema.ScheduleView, len(rows))
		for i, r := range rows {
			views[i] = r.View()
		}

		return emit(cmd.OutOrStdout(), views, func(w io.Writer) {
			if len(views) == 0 {
				fmt.Fprintln(w, renderMuted("No classes cached. Run 'cn schedule sync'."))
				return
			}
			out := make([][]string, len(views))
			for i, v := range views {
				out[i] = []string{v.ID, v.Day, v.TimeRange, renderAccent(v.CourseName), strconv.Itoa(v.Credits), v.Instructor, v.Room}
			}
			table(w, []string{"ID", "DAY", "TIME", "COURSE", "SKS", "INSTRUCTOR", "ROOM"}, out)
		})
	},
}

var scheduleSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace the cached schedule with the server's",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.requireUser(); err != nil {
			return err
		}
		if err := a.schedules.Refresh(cmd.Context(), nil); err != nil {
			return err
		}
		n, err := a.db.Count(cmd.Context(), cache.TableSchedules)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Schedule synced (%d classes cached)\n", renderPass("✓"), n)
		return nil
	},
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <course>",
	Short: "Add a class",
	Example: `  cn schedule add "Algorithms" --day monday --start 08:00 --end 09:40 --room B201 --credits 3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := scheduleInput(cmd)
		in.CourseName = args[0]

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.requireUser(); err != nil {
			return err
		}
		row, err := a.schedules.Create(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s (%s)\n", renderPass("✓"), renderAccent(row.CourseName), row.ID)
		return nil
	},
}

var scheduleEditCmd = &cobra.Command{
	Use:   "edit <id> <course>",
	Short: "Replace the fields of a class",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := scheduleInput(cmd)
		in.CourseName = args[1]

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.schedules.Update(cmd.Context(), args[0], in); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Updated %s\n", renderPass("✓"), args[0])
		return nil
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a class",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.schedules.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", renderPass("✓"), args[0])
		return nil
	},
}

func scheduleInput(cmd *cobra.Command) schema.ScheduleInput {
	var in schema.ScheduleInput
	in.Credits, _ = cmd.Flags().GetInt("credits")
	in.Instructor, _ = cmd.Flags().GetString("instructor")
	in.Day, _ = cmd.Flags().GetString("day")
	in.StartTime, _ = cmd.Flags().GetString("start")
	in.EndTime, _ = cmd.Flags().GetString("end")
	in.Room, _ = cmd.Flags().GetString("room")
	return in
}

func addScheduleFlags(cmd *cobra.Command) {
	cmd.Flags().Int("credits", 0, "credit units (SKS)")
	cmd.Flags().String("instructor", "", "lecturer")
	cmd.Flags().String("day", "", "day of week, English or Indonesian")
	cmd.Flags().String("start", "", "start time, HH:MM")
	cmd.Flags().String("end", "", "end time, HH:MM")
	cmd.Flags().String("room", "", "room")
	_ = cmd.MarkFlagRequired("day")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func init() {
	scheduleListCmd.Flags().Bool("sync", false, "refresh from the server first")
	addScheduleFlags(scheduleAddCmd)
	addScheduleFlags(scheduleEditCmd)

	scheduleCmd.AddCommand(scheduleListCmd, scheduleSyncCmd, scheduleAddCmd, scheduleEditCmd, scheduleRemoveCmd)
	rootCmd.AddCommand(scheduleCmd)
}
