package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/cdnpublish/internal/config"
	"github.com/openmined/cdnpublish/internal/errs"
	"github.com/openmined/cdnpublish/internal/version"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           version.AppName,
		Short:         "Publish local files to an edge storage zone",
		Version:       version.Detailed(),
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogger(cmd.ErrOrStderr(), verbose)
			slog.Debug(version.AppName, "version", version.Short(), "command", cmd.Name())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("storage-api-base-url", "s", config.DefaultBaseURL, "Storage API base url")
	flags.StringP("storage-api-key", "k", "", "Storage API access key")
	flags.StringP("zone-name", "z", "", "Storage zone name")
	flags.String("config", "", "Config file (default "+config.DefaultConfigDir+"/config.{yaml,json})")
	flags.String("env-file", config.DefaultEnvFileName, "Dotenv file with CDN_* variables")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func setupLogger(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	})))
}

func main() {
	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Debug("command failed", "kind", errs.KindOf(err))
		fmt.Fprintln(os.Stderr, red.Render(err.Error()))
		stop()
		os.Exit(1)
	}
}
