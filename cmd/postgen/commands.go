package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	postgen "github.com/goliatone/go-postgen"
	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/failure"
)

func lintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <platform>",
		Short: "Report schema configuration issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := a.engine.Lint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				fmt.Fprintf(a.out, "%s: no issues\n", args[0])
				return nil
			}
			count := 0
			for _, name := range sortedKeys(issues) {
				for _, issue := range issues[name] {
					fmt.Fprintf(a.out, "%s: %s\n", name, issue)
					count++
				}
			}
			return fmt.Errorf("%d schema issue(s)", count)
		},
	}
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <platform>",
		Short: "Validate stored content against the editor schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			errs, err := a.engine.Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(errs) == 0 {
				fmt.Fprintln(a.out, "content is valid")
				return nil
			}
			for _, name := range sortedKeys(errs) {
				fmt.Fprintf(a.out, "%s: %s\n", name, errs[name])
			}
			return &failure.Error{Kind: failure.KindValidation, Op: "postgen.validate", Message: fmt.Sprintf("%d invalid field(s)", len(errs))}
		},
	}
}

func variablesCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "variables <platform> <template>",
		Short: "List the template variables and their effective values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := a.engine.Template(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			resolution, err := a.engine.Variables(cmd.Context(), args[0], tpl)
			if err != nil {
				return err
			}
			list := resolution.Visible
			if all {
				list = resolution.All
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVALUE\tFLAGS")
			for _, v := range list {
				var flags []string
				if v.Overridden {
					flags = append(flags, "overridden")
				}
				if v.AutoFilled {
					flags = append(flags, "auto")
				}
				if v.Disabled {
					flags = append(flags, "disabled")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", v.Name, v.Value, strings.Join(flags, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include variables hidden from the panel")

	cmd.AddCommand(&cobra.Command{
		Use:   "set <platform> <template> <name> <value>",
		Short: "Override a variable value",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := a.engine.Template(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if _, err := a.engine.SetVariable(cmd.Context(), args[0], tpl, args[2], args[3]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s = %q\n", args[2], args[3])
			return nil
		},
	})

	for _, toggle := range []struct {
		use      string
		short    string
		disabled bool
	}{
		{"disable", "Lock a variable against edits", true},
		{"enable", "Unlock a variable", false},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   toggle.use + " <platform> <template> <name>",
			Short: toggle.short,
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				tpl, err := a.engine.Template(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				_, err = a.engine.DisableVariable(cmd.Context(), args[0], tpl, args[2], toggle.disabled)
				return err
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "preview <platform> <template>",
		Short: "Print the template body with variables substituted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := a.engine.Template(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			body, err := a.engine.Preview(cmd.Context(), args[0], tpl)
			if err != nil {
				return err
			}
			return a.printJSON(body)
		},
	})
	return cmd
}

func applyCmd(a *app) *cobra.Command {
	var (
		mode       string
		individual []string
		groups     []string
		locale     string
		files      []string
	)
	cmd := &cobra.Command{
		Use:   "apply <platform> <template>",
		Short: "Apply a catalog template to the stored content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := postgen.ApplyRequest{Platform: args[0], TemplateID: args[1], SpecificFiles: files}
			if mode != "" || len(individual) > 0 || len(groups) > 0 || locale != "" {
				req.Targets = &content.TargetsConfig{
					Mode:           content.TargetMode(mode),
					Individual:     individual,
					Groups:         groups,
					TemplateLocale: locale,
				}
			}
			result, err := a.engine.ApplyTemplate(cmd.Context(), req)
			if err != nil {
				if ps, schemaErr := a.engine.Schema(cmd.Context(), args[0]); schemaErr == nil {
					mapped := postgen.ServerErrors(ps.Editor, err)
					for _, name := range sortedKeys(mapped.Fields) {
						fmt.Fprintf(a.out, "%s: %s\n", name, strings.Join(mapped.Fields[name], "; "))
					}
					for _, message := range mapped.Section {
						fmt.Fprintln(a.out, message)
					}
				}
				return errors.New(failure.UserMessage(err, "template could not be applied"))
			}
			fmt.Fprintf(a.out, "applied %s as %s\n", result.Entry.TemplateName, result.Entry.ID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&mode, "mode", "", "Target mode (all, groups, individual)")
	flags.StringSliceVar(&individual, "individual", nil, "Individual recipient ids")
	flags.StringSliceVar(&groups, "groups", nil, "Group ids")
	flags.StringVar(&locale, "locale", "", "Template locale")
	flags.StringSliceVar(&files, "files", nil, "Restrict uploaded files to these ids")
	return cmd
}

func templatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates <platform>",
		Short: "List catalog templates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := a.engine.Templates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY")
			for _, tpl := range templates {
				fmt.Fprintf(w, "%s\t%s\t%s\n", tpl.ID, tpl.Name, tpl.Category)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "applied <platform>",
		Short: "List applied template entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.engine.Content(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(state.Templates())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <platform> <entry-id>",
		Short: "Remove an applied template entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.engine.RemoveTemplate(cmd.Context(), args[0], args[1])
			return err
		},
	})
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
