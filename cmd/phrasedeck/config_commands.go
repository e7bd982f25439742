package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chaz8081/phrasedeck/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a configuration file with default values",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" && !overwrite {
				written, err := config.WriteDefault()
				if err != nil {
					return err
				}
				if written == "" {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", config.DefaultConfigPath())
				}
				target = written
			} else {
				if target == "" {
					target = config.DefaultConfigPath()
				} else {
					target = config.ExpandTilde(target)
				}
				if !overwrite {
					if _, err := os.Stat(target); err == nil {
						return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
					} else if !os.IsNotExist(err) {
						return fmt.Errorf("check config path: %w", err)
					}
				}
				if err := config.WriteTo(target, config.Default()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote default configuration to %s\n", target)
			fmt.Fprintln(out, "Run 'phrasedeck model download' to fetch the configured whisper model.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# source: %s\n", configSource(ctx))
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", configSource(ctx))
			if _, err := os.Stat(cfg.Transcribe.ModelPath); err != nil {
				fmt.Fprintf(out, "Warning: model not found at %s\n", cfg.Transcribe.ModelPath)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func configSource(ctx *commandContext) string {
	if ctx.configPath == "" {
		return "built-in defaults"
	}
	return ctx.configPath
}
