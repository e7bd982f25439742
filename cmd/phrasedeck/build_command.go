package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chaz8081/phrasedeck/internal/audio"
	"github.com/chaz8081/phrasedeck/internal/config"
	"github.com/chaz8081/phrasedeck/internal/logging"
	"github.com/chaz8081/phrasedeck/internal/pipeline"
	"github.com/chaz8081/phrasedeck/internal/transcribe"
)

type buildFlags struct {
	text          string
	out           string
	model         string
	language      string
	format        string
	title         string
	silenceThresh float64
	minSilence    int
	keepSilence   int
	padding       int
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build AUDIO",
		Short: "Split a recording into phrases and generate its study page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyBuildFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}

			opts := pipeline.Options{
				AudioPath: args[0],
				TextPath:  flags.text,
				OutputDir: cfg.Output.Dir,
				Split:     splitOptions(cfg.Split),
				Title:     cfg.Output.Title,
				Language:  cfg.Transcribe.Language,
			}
			if opts.TextPath == "" {
				opts.TextPath = pipeline.DefaultTextPath(opts.AudioPath)
			}
			if err := pipeline.CheckInputs(opts); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBuild(runCtx, cmd, cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.text, "text", "", "Reference text file (default <audio dir>/<base>.txt)")
	f.StringVarP(&flags.out, "out", "o", "", "Parent directory of the generated folder")
	f.StringVar(&flags.model, "model", "", "Path to the whisper ggml model")
	f.StringVarP(&flags.language, "language", "l", "", "Spoken language code, or auto")
	f.StringVar(&flags.format, "format", "", "Clip format: wav or mp3")
	f.StringVar(&flags.title, "title", "", "Page title")
	f.Float64Var(&flags.silenceThresh, "silence-thresh", 0, "Silence threshold in dBFS")
	f.IntVar(&flags.minSilence, "min-silence", 0, "Minimum silence between phrases, in ms")
	f.IntVar(&flags.keepSilence, "keep-silence", 0, "Silence kept around each phrase, in ms")
	f.IntVar(&flags.padding, "padding", 0, "Zero padding added to both ends of each clip, in ms")
	return cmd
}

// applyBuildFlags overrides cfg with the flags set on the command line.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config, flags buildFlags) {
	changed := cmd.Flags().Changed
	if changed("out") {
		cfg.Output.Dir = config.ExpandTilde(flags.out)
	}
	if changed("model") {
		cfg.Transcribe.ModelPath = config.ExpandTilde(flags.model)
	}
	if changed("language") {
		cfg.Transcribe.Language = flags.language
	}
	if changed("format") {
		cfg.Audio.ClipFormat = flags.format
	}
	if changed("title") {
		cfg.Output.Title = flags.title
	}
	if changed("silence-thresh") {
		cfg.Split.SilenceThreshDB = flags.silenceThresh
	}
	if changed("min-silence") {
		cfg.Split.MinSilenceMS = flags.minSilence
	}
	if changed("keep-silence") {
		cfg.Split.KeepSilenceMS = flags.keepSilence
	}
	if changed("padding") {
		cfg.Split.PaddingMS = flags.padding
	}
}

func splitOptions(c config.SplitConfig) audio.SplitOptions {
	return audio.SplitOptions{
		SilenceThreshDB: c.SilenceThreshDB,
		MinSilence:      time.Duration(c.MinSilenceMS) * time.Millisecond,
		KeepSilence:     time.Duration(c.KeepSilenceMS) * time.Millisecond,
		Padding:         time.Duration(c.PaddingMS) * time.Millisecond,
		SeekStep:        time.Duration(c.SeekStepMS) * time.Millisecond,
	}
}

func runBuild(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts pipeline.Options) error {
	logger, err := logging.FromConfig(cfg)
	if err != nil {
		return err
	}

	exporter, err := audio.NewExporter(cfg.Audio.ClipFormat, cfg.Audio.FFmpegPath)
	if err != nil {
		return err
	}

	logger.Info("loading whisper model", "path", cfg.Transcribe.ModelPath)
	modelStart := time.Now()
	transcriber, err := transcribe.New(&cfg.Transcribe)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Check that the model file exists at: %s\nRun 'phrasedeck model download' to fetch it.\n", cfg.Transcribe.ModelPath)
		return fmt.Errorf("load whisper model: %w", err)
	}
	defer transcriber.Close()
	logger.Info("model loaded", "elapsed", time.Since(modelStart).Round(time.Millisecond))

	p := &pipeline.Pipeline{
		Decoder:     audio.NewDecoder(cfg.Audio.FFmpegPath, cfg.Audio.SampleRate),
		Exporter:    exporter,
		Transcriber: transcriber,
		Logger:      logger,
	}
	if logging.IsTerminal(os.Stderr) {
		p.Progress = newProgress(os.Stderr)
	}

	res, err := p.Run(ctx, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("build cancelled")
		}
		return err
	}

	printSummary(cmd.OutOrStdout(), res)
	return nil
}

// newProgress draws a transcription progress bar on w.
func newProgress(w io.Writer) pipeline.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("transcribing"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
		if done == total {
			_ = bar.Finish()
		}
	}
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintln(w, phraseTable(res))
	fmt.Fprintf(w, "Phrases: %d  Audio: %s  Reference agreement: %s\n",
		len(res.Phrases), formatSeconds(res.Duration), formatAgreement(res.Agreement))
	fmt.Fprintf(w, "Page generated: %s\n", filepath.Clean(res.PagePath))
}
