// Package main provides the postgen binary: a command line host for the post
// authoring engine backed by a local sqlite content store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "postgen"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Author platform posts from schemas and templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `postgen edits platform post content described by backend schemas,
resolves template variables and applies catalog templates.

Content is kept in a local sqlite database; schemas, option lists and the
template mapping service are read from the configured API.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["bare"] == "true" {
				return nil
			}
			return a.open(cmd.Context(), cmd.OutOrStdout())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.StringVar(&a.parsedPath, "parsed", "", "JSON or YAML file with parsed event data")
	flags.StringSliceVar(&a.files, "file", nil, "Uploaded file reference as id=name (repeatable)")

	cmd.AddCommand(
		lintCmd(a),
		validateCmd(a),
		variablesCmd(a),
		applyCmd(a),
		templatesCmd(a),
		importCmd(a),
		editCmd(a),
		serveCmd(a),
		configCmd(a),
		&cobra.Command{
			Use:         "version",
			Short:       "Print version information",
			Annotations: map[string]string{"bare": "true"},
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}
