package main

import (
	"fmt"
	"time"

	"github.com/openmined/cdnpublish/internal/publish"
	"github.com/openmined/cdnpublish/internal/remotepath"
	"github.com/openmined/cdnpublish/internal/storage"
	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [paths...]",
		Short: "Upload files and directories to the storage zone",
		Long: `Uploads a file, a directory or a list of files, directories and glob patterns to the
remote location. Every file keeps its path relative to the current directory, below --prefix.
Without --execute only a report of the planned uploads is printed.`,
		RunE: runUpload,
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.Int("parallel", publish.DefaultParallel, "Number of parallel uploads")
	flags.Int("attempts", publish.DefaultAttempts, "Number of attempts per file before bailing out")
	flags.Int("millis", int(publish.DefaultDelay/time.Millisecond), "Delay in milliseconds between attempts")
	flags.BoolP("execute", "y", false, "Perform the upload instead of a dry run")
	flags.Bool("overwrite", false, "Skip checking whether the remote location already holds files")
	flags.BoolP("checksum", "c", false, "Send a SHA-256 checksum with every file for server side verification")
	flags.StringP("prefix", "p", "/", "Remote path prepended to every uploaded file")
	flags.StringArray("exclude", nil, "Gitignore style pattern of files to skip (repeatable)")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	rawPrefix, _ := cmd.Flags().GetString("prefix")
	prefix, err := remotepath.Parse(rawPrefix)
	if err != nil {
		return err
	}

	opts := publish.Options{
		Paths:  args,
		Prefix: prefix,
	}
	opts.Parallel, _ = cmd.Flags().GetInt("parallel")
	opts.Attempts, _ = cmd.Flags().GetInt("attempts")
	millis, _ := cmd.Flags().GetInt("millis")
	opts.Delay = time.Duration(millis) * time.Millisecond
	opts.Execute, _ = cmd.Flags().GetBool("execute")
	opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")
	opts.Checksum, _ = cmd.Flags().GetBool("checksum")
	opts.Exclude, _ = cmd.Flags().GetStringArray("exclude")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	client, err := storage.New(cfg)
	if err != nil {
		return err
	}

	if err := publish.Run(cmd.Context(), client, opts, cmd.OutOrStdout()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Execute {
		fmt.Fprintln(out, green.Render("upload completed"))
	} else {
		fmt.Fprintln(out, gray.Render("nothing uploaded, run again with --execute to upload"))
	}
	return nil
}
