package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chaz8081/phrasedeck/internal/config"
	"github.com/chaz8081/phrasedeck/internal/logging"
	"github.com/chaz8081/phrasedeck/internal/models"
)

const defaultModelName = "large-v3"

func newModelCommand(ctx *commandContext) *cobra.Command {
	var dir string

	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Manage whisper models",
	}
	modelCmd.PersistentFlags().StringVar(&dir, "dir", "", "Models directory (default: directory of transcribe.model_path)")

	modelCmd.AddCommand(newModelListCommand(ctx, &dir))
	modelCmd.AddCommand(newModelDownloadCommand(ctx, &dir))

	return modelCmd
}

// modelsDir resolves the directory models are listed from and saved to.
func modelsDir(ctx *commandContext, dirFlag string) string {
	if d := strings.TrimSpace(dirFlag); d != "" {
		return config.ExpandTilde(d)
	}
	cfg, err := ctx.ensureConfig()
	if err != nil || cfg.Transcribe.ModelPath == "" {
		return config.DefaultModelsDir()
	}
	return filepath.Dir(cfg.Transcribe.ModelPath)
}

// configuredModelName returns the known model whose file the config points
// at, or the default model.
func configuredModelName(ctx *commandContext) string {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return defaultModelName
	}
	base := filepath.Base(cfg.Transcribe.ModelPath)
	name := strings.TrimSuffix(strings.TrimPrefix(base, "ggml-"), ".bin")
	if _, err := models.Lookup(name); err != nil {
		return defaultModelName
	}
	return name
}

func newModelListCommand(ctx *commandContext, dirFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List downloadable models",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := modelsDir(ctx, *dirFlag)
			var rows []modelRow
			for _, m := range models.Sorted() {
				_, err := os.Stat(filepath.Join(dir, m.FileName()))
				rows = append(rows, modelRow{Model: m, Installed: err == nil})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, modelTable(rows))
			fmt.Fprintf(out, "Models directory: %s\n", dir)
			return nil
		},
	}
}

func newModelDownloadCommand(ctx *commandContext, dirFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download [name]",
		Short: "Download a whisper model (default: the configured one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := configuredModelName(ctx)
			if len(args) == 1 {
				name = args[0]
			}

			d := models.NewDownloader(modelsDir(ctx, *dirFlag))
			d.Progress = cmd.ErrOrStderr()
			d.ProgressBar = logging.IsTerminal(d.Progress)

			out := cmd.OutOrStdout()
			res, err := d.Download(cmd.Context(), name)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintf(out, "Model already present at %s (%s)\n", res.Path, humanize.IBytes(uint64(res.Bytes)))
				return nil
			}
			fmt.Fprintf(out, "Downloaded %s to %s\n", humanize.IBytes(uint64(res.Bytes)), res.Path)
			return nil
		},
	}
}
