package interactive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

// ErrCancelled is returned when the user backs out of a prompt
var ErrCancelled = errors.New("cancelled")

// PickDeployment lets the user select one of records
func PickDeployment(records []*models.DeploymentRecord, prompt string) (*models.DeploymentRecord, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no deployments found")
	}

	// If only one match, return it directly
	if len(records) == 1 {
		return records[0], nil
	}

	options := FormatDeploymentOptions(records)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "👉 {{ . | cyan }}",
		Inactive: "   {{ . | faint }}",
		Selected: "👍 {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, / to search, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:     prompt,
		Items:     options,
		Templates: templates,
		Size:      10,
		Searcher:  FuzzySearchFunc(options),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", ErrCancelled)
	}

	return records[index], nil
}

// Confirm asks a yes/no question, defaulting to no
func Confirm(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}

// FormatDeploymentOptions creates display strings for deployment selection
func FormatDeploymentOptions(records []*models.DeploymentRecord) []string {
	options := make([]string, len(records))
	for i, rec := range records {
		address := rec.Address
		if len(address) > 10 {
			address = address[:10] + "..."
		}
		if address == "" {
			address = "no address"
		}
		options[i] = fmt.Sprintf("%s (%s) - %s: %s",
			rec.ContractID,
			rec.Contract,
			strings.ToLower(string(rec.Status)),
			address,
		)
	}
	return options
}

// FuzzySearchFunc creates a fuzzy search function for promptui
func FuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		// Empty search shows all items
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		// First try simple substring match
		if strings.Contains(item, input) {
			return true
		}

		return len(fuzzy.Find(input, []string{item})) > 0
	}
}
