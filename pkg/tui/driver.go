package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// InputConfig describes a single line prompt. Validator rejects an answer
// before it is returned.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig describes a choice among Options. DefaultIndex applies to
// Select, Defaults to MultiSelect; both index Options.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int
	Help         string
}

type TextAreaConfig struct {
	Message string
	Default string
	Help    string
}

// PromptDriver is the terminal seen by the Editor. Select and MultiSelect
// answer with positions in the offered options.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Password(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

// SurveyDriver asks through survey/v2 and writes notices to out.
type SurveyDriver struct {
	out io.Writer
}

// NewSurveyDriver returns a driver writing notices to out, or stdout.
func NewSurveyDriver(out io.Writer) *SurveyDriver {
	if out == nil {
		out = os.Stdout
	}
	return &SurveyDriver{out: out}
}

func (d *SurveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	var answer string
	err := askOne(ctx, &survey.Input{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}, &answer, cfg.Validator)
	return answer, err
}

// Password never echoes the stored value; a blank answer keeps it.
func (d *SurveyDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	var answer string
	if err := askOne(ctx, &survey.Password{Message: cfg.Message, Help: cfg.Help}, &answer, cfg.Validator); err != nil {
		return "", err
	}
	if answer == "" {
		return cfg.Default, nil
	}
	return answer, nil
}

func (d *SurveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var answer bool
	err := askOne(ctx, &survey.Confirm{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}, &answer, nil)
	return answer, err
}

func (d *SurveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	prompt := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if picked := atPositions(cfg.Options, []int{cfg.DefaultIndex}); len(picked) == 1 {
		prompt.Default = picked[0]
	}
	var answer string
	if err := askOne(ctx, prompt, &answer, nil); err != nil {
		return -1, err
	}
	return slices.Index(cfg.Options, answer), nil
}

func (d *SurveyDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	prompt := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if picked := atPositions(cfg.Options, cfg.Defaults); len(picked) > 0 {
		prompt.Default = picked
	}
	var answer []string
	if err := askOne(ctx, prompt, &answer, nil); err != nil {
		return nil, err
	}
	return positions(cfg.Options, answer), nil
}

func (d *SurveyDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	var answer string
	err := askOne(ctx, &survey.Multiline{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}, &answer, nil)
	return answer, err
}

func (d *SurveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// askOne runs one survey prompt. Ctrl+C surfaces as ErrAborted.
func askOne(ctx context.Context, prompt survey.Prompt, answer any, check func(string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var opts []survey.AskOpt
	if check != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			text, _ := ans.(string)
			return check(text)
		}))
	}
	err := survey.AskOne(prompt, answer, opts...)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// positions returns the indices of options present in values, in option
// order.
func positions(options, values []string) []int {
	var out []int
	for i, option := range options {
		if slices.Contains(values, option) {
			out = append(out, i)
		}
	}
	return out
}

func atPositions(options []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out
}
