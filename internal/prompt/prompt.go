// Package prompt renders the interactive configuration form for questions no
// other answer source resolved.
package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/aniongithub/balena-cli/internal/devicetype"
)

// Prompter collects answers with a terminal form. It is only handed the
// unanswered questions; anything the user leaves blank stays unanswered.
type Prompter struct{}

// Ask renders one form group holding the given questions, defaults
// prefilled, and returns the collected answers. Blank answers are omitted so
// they never shadow downstream defaults.
func (Prompter) Ask(ctx context.Context, questions []devicetype.Option) (map[string]any, error) {
	if len(questions) == 0 {
		return nil, nil
	}

	values := make([]string, len(questions))
	confirms := make([]bool, len(questions))
	fields := make([]huh.Field, 0, len(questions))
	for i, q := range questions {
		fields = append(fields, fieldFor(q, &values[i], &confirms[i]))
	}

	form := huh.NewForm(huh.NewGroup(fields...).Title("Device configuration"))
	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("configuration form failed: %w", err)
	}

	answers := make(map[string]any, len(questions))
	for i, q := range questions {
		v, ok := coerce(q, values[i], confirms[i])
		if !ok {
			continue
		}
		answers[q.Name] = v
	}
	return answers, nil
}

// fieldFor builds the form field matching a question's declared type.
func fieldFor(q devicetype.Option, value *string, confirm *bool) huh.Field {
	title := q.Message
	if title == "" {
		title = q.Name
	}
	*value = DefaultString(q)

	switch q.Type {
	case "list":
		opts := make([]huh.Option[string], 0, len(q.Choices))
		for _, c := range q.Choices {
			opts = append(opts, huh.NewOption(c, c))
		}
		return huh.NewSelect[string]().Title(title).Options(opts...).Value(value)
	case "confirm":
		*confirm, _ = q.Default.(bool)
		return huh.NewConfirm().Title(title).Value(confirm)
	case "password":
		return huh.NewInput().Title(title).EchoMode(huh.EchoModePassword).Value(value)
	case "number":
		return huh.NewInput().Title(title).Value(value).Validate(validateNumber)
	default:
		return huh.NewInput().Title(title).Value(value)
	}
}

// DefaultString renders a question's default for prefilling a text field.
func DefaultString(q devicetype.Option) string {
	switch d := q.Default.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		return fmt.Sprint(d)
	}
}

// coerce converts collected form input back to the answer value, reporting
// false for blank input.
func coerce(q devicetype.Option, value string, confirm bool) (any, bool) {
	if q.Type == "confirm" {
		return confirm, true
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}
	if q.Type == "number" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, false
		}
		return n, true
	}
	return value, true
}

func validateNumber(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	return nil
}
