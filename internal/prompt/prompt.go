// Package prompt holds the interactive questions asked on the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

var (
	ErrEmptyQuery   = errors.New("please enter something to search for")
	ErrInvalidPrice = errors.New("please enter a non-negative number, e.g. 0.02")
)

// runner runs a form. Tests replace it.
var runner = func(ctx context.Context, form *huh.Form) error { return form.RunWithContext(ctx) }

// Query asks the user what to search for.
func Query(ctx context.Context) (string, error) {
	var q string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("What would you like to search for?").
			Prompt("> ").
			Value(&q).
			Validate(ValidateQuery),
	))
	if err := runner(ctx, form); err != nil {
		return "", err
	}
	return strings.TrimSpace(q), nil
}

func ValidateQuery(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// ParsePrice parses a USD amount per million tokens.
func ParsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "$"), 64)
	if err != nil || v < 0 {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

// PriceSource asks the user for the current embedding price, so a change in
// pricing needs no new release.
type PriceSource struct {
	// Model is shown in the question.
	Model string
}

func (p PriceSource) PricePerMillion(ctx context.Context) (float64, error) {
	var raw string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(fmt.Sprintf("What is the current price of %s in USD per 1M tokens?", p.Model)).
			Description("See https://openai.com/api/pricing/").
			Placeholder("0.02").
			Value(&raw).
			Validate(func(s string) error {
				_, err := ParsePrice(s)
				return err
			}),
	))
	if err := runner(ctx, form); err != nil {
		return 0, err
	}
	return ParsePrice(raw)
}
