package selfupdate

import (
	"context"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// HuhPrompter asks through an interactive terminal form.
type HuhPrompter struct{}

// NewHuhPrompter creates a terminal prompter.
func NewHuhPrompter() *HuhPrompter {
	return &HuhPrompter{}
}

// Confirm implements Prompter.
func (*HuhPrompter) Confirm(ctx context.Context, title, description string) (bool, error) {
	confirmed := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("upgrade").
				Title(title).
				Description(description).
				Affirmative("Update now").
				Negative("Later").
				Value(&confirmed),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}

	return confirmed, nil
}
