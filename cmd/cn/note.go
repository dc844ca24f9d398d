package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campusnote/campusnote/internal/content"
	"github.com/campusnote/campusnote/internal/schema"
)

var noteCmd = &cobra.Command{
	Use:     "note",
	Aliases: []string{"notes"},
	GroupID: "data",
	Short:   "Course notes",
}

var noteListCmd = &cobra.Command{
	Use:   "list <course-id>",
	Short: "List cached notes of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		course := args[0]
		if doSync, _ := cmd.Flags().GetBool("sync"); doSync {
			if err := a.notes.Refresh(cmd.Context(), course); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s showing cached notes: %v\n", renderWarn("⚠"), err)
			}
		}

		rows, err := a.notes.List(cmd.Context(), course)
		if err != nil {
			return err
		}
		views := make([]schema.NoteView, len(rows))
		for i, r := range rows {
			views[i] = r.View()
		}

		return emit(cmd.OutOrStdout(), views, func(w io.Writer) {
			if len(views) == 0 {
				fmt.Fprintln(w, renderMuted("No notes cached for this course."))
				return
			}
			out := make([][]string, len(views))
			for i, v := range views {
				out[i] = []string{v.ID, renderAccent(v.Title), v.LastModified.Local().Format("2006-01-02 15:04"), v.Preview}
			}
			table(w, []string{"ID", "TITLE", "MODIFIED", "PREVIEW"}, out)
		})
	},
}

var noteSyncCmd = &cobra.Command{
	Use:   "sync <course-id>",
	Short: "Replace the cached notes of a course with the server's",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.notes.Refresh(cmd.Context(), args[0]); err != nil {
			return err
		}
		rows, err := a.notes.List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Notes synced (%d cached for course %s)\n", renderPass("✓"), len(rows), args[0])
		return nil
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a cached note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		note, err := a.notes.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		blocks := note.Document().Blocks()

		if asHTML, _ := cmd.Flags().GetBool("html"); asHTML {
			out, err := content.NewRenderer().Render(blocks)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}

		view := struct {
			schema.NoteView `yaml:",inline"`
			Content         string `json:"content" yaml:"content"`
		}{NoteView: note.View(), Content: note.ContentJSON}

		return emit(cmd.OutOrStdout(), view, func(w io.Writer) {
			fmt.Fprintf(w, "%s\n", renderAccent(note.Title))
			fmt.Fprintf(w, "%s\n\n", renderMuted(note.LastModified().Local().Format("Mon, 02 Jan 2006 15:04")))
			for i, b := range blocks {
				fmt.Fprintf(w, "%s %s\n", renderMuted(fmt.Sprintf("%2d", i)), describeBlock(b))
			}
		})
	},
}

var noteAddCmd = &cobra.Command{
	Use:   "add <course-id> <title>",
	Short: "Create a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.requireUser(); err != nil {
			return err
		}
		in := schema.NoteInput{CourseID: args[0], Title: args[1], Blocks: []content.Block{content.Text{Text: text}}}
		row, err := a.notes.Create(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Created note %s (%s)\n", renderPass("✓"), renderAccent(row.Title), row.ID)
		return nil
	},
}

var noteInsertCmd = &cobra.Command{
	Use:   "insert <id>",
	Short: "Insert a block at a cursor position",
	Long: `Insert text, an image or a file reference into a note.

The cursor is the index of the focused block (--focus) and a character offset
inside it (--caret). A focused text block is split at the caret. Without
--focus the block is appended.`,
	Example: `  cn note insert 42 --focus 0 --caret 5 --image https://example.com/board.jpg
  cn note insert 42 --text "Exam next week"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nb, err := blockFromFlags(cmd)
		if err != nil {
			return err
		}
		focus, _ := cmd.Flags().GetInt("focus")
		caret, _ := cmd.Flags().GetInt("caret")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		note, err := a.notes.InsertBlock(cmd.Context(), args[0], nb, focus, caret)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s now has %d blocks\n", renderPass("✓"), renderAccent(note.Title), note.Document().Len())
		return nil
	},
}

var noteRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a note",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.notes.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted note %s\n", renderPass("✓"), args[0])
		return nil
	},
}

// blockFromFlags builds the block named by exactly one of --text, --image,
// --gallery or --file.
func blockFromFlags(cmd *cobra.Command) (content.Block, error) {
	flags := cmd.Flags()
	var blocks []content.Block

	if flags.Changed("text") {
		text, _ := flags.GetString("text")
		blocks = append(blocks, content.Text{Text: text})
	}
	if flags.Changed("image") {
		uri, _ := flags.GetString("image")
		blocks = append(blocks, content.Image{
			Source:   content.RemoteImage(uri),
			WidthPx:  content.DefaultWidthPx,
			HeightPx: content.DefaultHeightPx,
		})
	}
	if flags.Changed("gallery") {
		uris, _ := flags.GetStringSlice("gallery")
		blocks = append(blocks, content.ImageGroup{URIs: uris, Inline: true})
	}
	if flags.Changed("file") {
		name, _ := flags.GetString("file")
		f := content.File{Name: name}
		if flags.Changed("file-uri") {
			uri, _ := flags.GetString("file-uri")
			f.URI = &uri
		}
		blocks = append(blocks, f)
	}

	if len(blocks) != 1 {
		return nil, errors.New("exactly one of --text, --image, --gallery or --file is required")
	}
	return blocks[0], nil
}

// describeBlock renders a block as a single line of terminal text.
func describeBlock(b content.Block) string {
	switch v := b.(type) {
	case content.Text:
		if v.Text == "" {
			return renderMuted("(empty)")
		}
		return v.Text
	case content.Image:
		src := v.Source.URI
		if !v.Source.IsRemote() {
			src = fmt.Sprintf("resource %d", v.Source.ResourceID)
		}
		return fmt.Sprintf("%s %s (%dx%d)", renderAccent("[image]"), src, v.WidthPx, v.HeightPx)
	case content.ImageGroup:
		return fmt.Sprintf("%s %s", renderAccent("[gallery]"), strings.Join(v.URIs, ", "))
	case content.File:
		if v.URI == nil {
			return fmt.Sprintf("%s %s %s", renderAccent("[file]"), v.Name, renderWarn("(not uploaded)"))
		}
		return fmt.Sprintf("%s %s %s", renderAccent("[file]"), v.Name, *v.URI)
	default:
		return ""
	}
}

func init() {
	noteListCmd.Flags().Bool("sync", false, "refresh from the server first")
	noteShowCmd.Flags().Bool("html", false, "render the note as HTML")
	noteAddCmd.Flags().String("text", "", "initial body text")

	noteInsertCmd.Flags().Int("focus", -1, "index of the focused block (-1 appends)")
	noteInsertCmd.Flags().Int("caret", 0, "character offset inside a focused text block")
	noteInsertCmd.Flags().String("text", "", "insert a text run")
	noteInsertCmd.Flags().String("image", "", "insert an image by URI")
	noteInsertCmd.Flags().StringSlice("gallery", nil, "insert a gallery of image URIs")
	noteInsertCmd.Flags().String("file", "", "insert a file reference by name")
	noteInsertCmd.Flags().String("file-uri", "", "uploaded location of --file")

	noteCmd.AddCommand(noteListCmd, noteSyncCmd, noteShowCmd, noteAddCmd, noteInsertCmd, noteRemoveCmd)
	rootCmd.AddCommand(noteCmd)
}
