package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openmined/cdnpublish/internal/errs"
	"github.com/openmined/cdnpublish/internal/remotepath"
	"github.com/openmined/cdnpublish/internal/storage"
	"github.com/spf13/cobra"
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <path>",
		Short: "Download a remotely stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := remotepath.Parse(args[0])
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			client, err := storage.New(cfg)
			if err != nil {
				return err
			}

			target, err := download(cmd, client, path, output)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), green.Render("downloaded "+path.Abs()+" to "+target))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", ".", "Directory where downloaded content is stored")
	return cmd
}

// download fetches path into the output directory and returns the written file.
// An empty listing of path means it is a file or does not exist; a directory is not supported.
func download(cmd *cobra.Command, client *storage.Client, path remotepath.Path, output string) (string, error) {
	info, err := os.Stat(output)
	switch {
	case err == nil && !info.IsDir():
		return "", errs.New(errs.KindParse, "selected output '%s' is a file", output)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", errs.Wrap(errs.KindIO, err, "stat output '%s'", output)
	}

	items, err := client.List(cmd.Context(), path.AsDir())
	if err != nil {
		return "", err
	}
	if len(items) > 0 {
		return "", errs.New(errs.KindOperations, "'%s' is a directory: directory download is not supported", path.AsDir())
	}

	name, ok := path.FileName()
	if !ok {
		return "", errs.New(errs.KindParse, "remote resource is a file but input path '%s' does not represent a file", path.Abs())
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return "", errs.Wrap(errs.KindIO, err, "create output '%s'", output)
	}

	target := filepath.Join(output, name)
	slog.Debug("download", "path", path.Abs(), "output", target)
	if err := client.Get(cmd.Context(), path, target); err != nil {
		return "", err
	}
	return target, nil
}
