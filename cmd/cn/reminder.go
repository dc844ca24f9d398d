package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusnote/campusnote/internal/schema"
)

var reminderCmd = &cobra.Command{
	Use:     "reminder",
	Aliases: []string{"reminders", "rem"},
	GroupID: "data",
	Short:   "Reminders and their attachments",
}

var reminderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if doSync, _ := cmd.Flags().GetBool("sync"); doSync {
			if err := a.reminders.Refresh(cmd.Context(), nil); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s showing cached reminders: %v\n", renderWarn("⚠"), err)
			}
		}
		all, _ := cmd.Flags().GetBool("all")

		rows, err := a.reminders.List(cmd.Context(), nil)
		if err != nil {
			return err
		}
		views := make([]schema.ReminderView, 0, len(rows))
		for _, r := range rows {
			if r.IsCompleted && !all {
				continue
			}
			views = append(views, r.View())
		}

		now := time.Now()
		return emit(cmd.OutOrStdout(), views, func(w io.Writer) {
			if len(views) == 0 {
				fmt.Fprintln(w, renderMuted("Nothing due."))
				return
			}
			out := make([][]string, len(views))
			for i, v := range views {
				mark := " "
				switch {
				case v.Completed:
					mark = renderPass("✓")
				case v.Overdue(now):
					mark = renderFail("!")
				}
				file := ""
				if v.HasFile {
					file = "📎"
				}
				out[i] = []string{mark, v.ID, v.DueLabel, renderAccent(v.Subject), v.Description, file}
			}
			table(w, []string{"", "ID", "DUE", "SUBJECT", "DESCRIPTION", ""}, out)
		})
	},
}

var reminderSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace the cached reminders with the server's",
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
		if err := a.reminders.Refresh(cmd.Context(), nil); err != nil {
			return err
		}
		rows, err := a.reminders.List(cmd.Context(), nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Reminders synced (%d cached)\n", renderPass("✓"), len(rows))
		return nil
	},
}

var reminderAddCmd = &cobra.Command{
	Use:   "add <subject>",
	Short: "Create a reminder",
	Example: `  cn reminder add "Essay draft" --due "friday 17:00"
  cn reminder add Quiz --due "2026-10-21 07:30" --desc "chapters 3-4"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dueText, _ := cmd.Flags().GetString("due")
		due, err := parseDue(dueText, time.Now())
		if err != nil {
			return err
		}
		desc, _ := cmd.Flags().GetString("desc")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.requireUser(); err != nil {
			return err
		}
		row, err := a.reminders.Create(cmd.Context(), schema.ReminderInput{Subject: args[0], DueAt: due, Description: desc})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s due %s (%s)\n", renderPass("✓"), renderAccent(row.Subject), row.View().DueLabel, row.ID)
		return nil
	},
}

var reminderDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a reminder completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.reminders.SetCompleted(cmd.Context(), args[0], !undo); err != nil {
			return err
		}
		state := "completed"
		if undo {
			state = "reopened"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Reminder %s %s\n", renderPass("✓"), args[0], state)
		return nil
	},
}

var reminderAttachCmd = &cobra.Command{
	Use:   "attach <id> <path>",
	Short: "Upload a file and link it to a reminder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		file, err := a.reminders.Attach(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Attached %s (%s)\n", renderPass("✓"), renderAccent(file.FileName), file.FileID)
		if file.LocalPath != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "   Local copy: %s\n", *file.LocalPath)
		}
		return nil
	},
}

type fileView struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Remote    string `json:"remote,omitempty" yaml:"remote,omitempty"`
	LocalPath string `json:"local_path,omitempty" yaml:"local_path,omitempty"`
}

var reminderFilesCmd = &cobra.Command{
	Use:   "files <id>",
	Short: "List the attachments of a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if doSync, _ := cmd.Flags().GetBool("sync"); doSync {
			if err := a.reminders.SyncFiles(cmd.Context(), args[0]); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s showing cached files: %v\n", renderWarn("⚠"), err)
			}
		}
		rows, err := a.reminders.Files(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		views := make([]fileView, len(rows))
		for i, f := range rows {
			views[i] = fileView{ID: f.FileID, Name: f.FileName, Type: f.FileType}
			if f.RemoteURL != nil {
				views[i].Remote = *f.RemoteURL
			}
			if f.LocalPath != nil {
				views[i].LocalPath = *f.LocalPath
			}
		}

		return emit(cmd.OutOrStdout(), views, func(w io.Writer) {
			if len(views) == 0 {
				fmt.Fprintln(w, renderMuted("No attachments."))
				return
			}
			out := make([][]string, len(views))
			for i, v := range views {
				local := renderMuted("not downloaded")
				if v.LocalPath != "" {
					local = v.LocalPath
				}
				out[i] = []string{v.ID, renderAccent(v.Name), v.Type, local}
			}
			table(w, []string{"ID", "NAME", "TYPE", "LOCAL"}, out)
		})
	},
}

var reminderFetchCmd = &cobra.Command{
	Use:   "fetch <id> <file-id>",
	Short: "Download an attachment into the local file store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.reminders.Fetch(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var reminderRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a reminder and its attachments",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.reminders.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted reminder %s\n", renderPass("✓"), args[0])
		return nil
	},
}

func init() {
	reminderListCmd.Flags().Bool("sync", false, "refresh from the server first")
	reminderListCmd.Flags().BoolP("all", "a", false, "include completed reminders")
	reminderAddCmd.Flags().String("due", "", `due date, e.g. "2026-10-21 07:30" or "tomorrow 9am"`)
	reminderAddCmd.Flags().String("desc", "", "description")
	_ = reminderAddCmd.MarkFlagRequired("due")
	reminderDoneCmd.Flags().Bool("undo", false, "reopen instead")
	reminderFilesCmd.Flags().Bool("sync", false, "refresh the attachment list first")

	reminderCmd.AddCommand(reminderListCmd, reminderSyncCmd, reminderAddCmd, reminderDoneCmd,
		reminderAttachCmd, reminderFilesCmd, reminderFetchCmd, reminderRemoveCmd)
	rootCmd.AddCommand(reminderCmd)
}
