package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-postgen/internal/schema/loader"
	"github.com/goliatone/go-postgen/pkg/openapi"
	"github.com/goliatone/go-postgen/pkg/schema"
)

func importCmd(a *app) *cobra.Command {
	var (
		platform string
		output   string
		partial  bool
	)
	cmd := &cobra.Command{
		Use:   "import <openapi-document> <operation-id>",
		Short: "Convert an OpenAPI operation into a platform schema",
		Long: `import reads an OpenAPI document from a file or URL and writes the
request body of one operation as the editor section of a platform schema.
The output can be dropped into the schemas directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := schema.ParseSource(args[0])
			if err != nil {
				return err
			}
			doc, err := loader.New(schema.NewLoaderOptions(schema.WithHTTPFallback(15*time.Second))).Load(cmd.Context(), src)
			if err != nil {
				return err
			}
			op, err := openapi.NewParser(openapi.WithPartialDocuments(partial)).Operation(cmd.Context(), doc, args[1])
			if err != nil {
				return err
			}

			section := op.Section()
			for _, issue := range schema.Lint(section) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", issue)
			}
			payload, err := yaml.Marshal(schema.PlatformSchema{Platform: platform, Editor: section})
			if err != nil {
				return fmt.Errorf("encode schema: %w", err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(payload)
				return err
			}
			if err := os.WriteFile(output, payload, 0o644); err != nil {
				return fmt.Errorf("write schema: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema written to %s\n", output)
			return nil
		},
		Annotations: map[string]string{"bare": "true"},
	}
	flags := cmd.Flags()
	flags.StringVar(&platform, "platform", "", "Platform id recorded in the schema")
	flags.StringVarP(&output, "output", "o", "", "Output file (stdout if empty)")
	flags.BoolVar(&partial, "partial", false, "Accept documents without paths")
	return cmd
}
