// Package config provides the config command
package config

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roboweedmaps/rwm-dataset/internal/conf"
)

// Command creates and returns the config command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(showCommand(settings))
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			source := settings.ConfigFile
			if source == "" {
				source = "built-in defaults"
			}
			if _, err := fmt.Fprintf(out, "# source: %s\n", source); err != nil {
				return err
			}
			return Render(out, settings)
		},
	}
}

// Render writes settings as YAML with the database password and Sentry DSN masked.
func Render(w io.Writer, settings *conf.Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings.Redacted()); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	return enc.Close()
}
