package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	postgen "github.com/goliatone/go-postgen"
	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/tui"
)

func editCmd(a *app) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "edit <platform>",
		Short: "Edit platform content interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			platform := args[0]

			ps, err := a.engine.Schema(ctx, platform)
			if err != nil {
				return err
			}
			target, ok := ps.Sections()[section]
			if !ok {
				return fmt.Errorf("unknown section %q", section)
			}
			for _, issue := range schema.Lint(target) {
				a.logger.Warn("schema issue", slog.String("section", section), slog.String("issue", issue.String()))
			}

			state, err := a.engine.Content(ctx, platform)
			if err != nil {
				return err
			}
			controllers, err := a.engine.Composites(ctx, platform, target, state)
			if err != nil {
				return err
			}
			for name, ctrl := range controllers {
				state = state.With(name, ctrl.Value())
			}

			remote := a.engine.FieldOptions(ctx, platform, target.Fields)
			rctx := postgen.RenderContext(platform, nil, remote, controllers)
			rctx.OnAction = func(action string, field schema.Field, _ map[string]any) {
				a.logger.Info("action requested", slog.String("action", action), slog.String("field", field.Name))
			}

			editor := tui.New(
				tui.WithPromptDriver(tui.NewSurveyDriver(cmd.OutOrStdout())),
				tui.WithRenderer(a.engine.Renderer()),
				tui.WithValidator(a.engine.Validator()),
				tui.WithLogger(a.logger),
			)
			next, err := editor.EditSection(ctx, target, state, rctx, controllers)
			if err != nil {
				return err
			}
			if err := a.engine.Save(ctx, platform, next); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %s\n", platform)
			return nil
		},
	}
	cmd.Flags().StringVar(&section, "section", "editor", "Schema section to edit (editor, settings, credentials, template)")
	return cmd
}
