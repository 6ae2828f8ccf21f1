package publish

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Report renders the resolved resources without touching the remote side.
func (p *Plan) Report(w io.Writer) error {
	rows := make([][]string, 0, len(p.Resources))
	for _, res := range p.Resources {
		checksum := "none"
		if res.Checksum != "" {
			checksum = "yes"
		}
		rows = append(rows, []string{
			filepath.Base(res.Path),
			res.Remote.Parent().AsDir().String(),
			checksum,
			humanize.Bytes(uint64(res.Size)),
		})
	}
	slices.SortFunc(rows, func(a, b []string) int {
		if c := strings.Compare(a[1], b[1]); c != 0 {
			return c
		}
		return strings.Compare(a[0], b[0])
	})

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("filename", "path", "checksum", "size").
		Rows(rows...)

	_, err := fmt.Fprintf(w, "\nupload dry run... %d files to upload\n\n%s\n\n", len(p.Resources), t.Render())
	return err
}
