package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/openmined/cdnpublish/internal/remotepath"
	"github.com/openmined/cdnpublish/internal/storage"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List the content of a remote directory",
		Long:  "Lists the content of a remote directory. A trailing slash is implied.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := "/"
			if len(args) > 0 {
				raw = args[0]
			}
			dir, err := remotepath.Parse(raw)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			client, err := storage.New(cfg)
			if err != nil {
				return err
			}

			items, err := client.List(cmd.Context(), dir.AsDir())
			if err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), dir.AsDir(), items)
		},
	}
}

func printItems(w io.Writer, dir remotepath.Dir, items []storage.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintf(w, "\nno items found in folder '%s'\n\n", dir)
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("name", "type", "size", "last changed")

	for _, item := range items {
		kind, size := "file", humanize.Bytes(uint64(max(item.Length, 0)))
		name := item.ObjectName
		if item.IsDirectory {
			kind, size = "dir", "-"
			name += remotepath.Separator
		}
		t.Row(name, kind, size, item.LastChanged)
	}

	_, err := fmt.Fprintf(w, "\ncontent of folder '%s'\n\n%s\n\n", cyan.Render(dir.String()), t.Render())
	return err
}
