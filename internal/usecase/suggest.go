package usecase

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
)

const maxSuggestions = 3

// Suggest returns up to three candidates that fuzzily match name, best first
func Suggest(name string, candidates []string) []string {
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// notFoundError builds a not-found error carrying "did you mean" hints
func notFoundError(kind, name string, candidates []string) error {
	suggestions := Suggest(name, candidates)
	if len(suggestions) == 0 {
		return fmt.Errorf("%w: %s %q", domain.ErrNotFound, kind, name)
	}
	return fmt.Errorf("%w: %s %q (did you mean %s?)", domain.ErrNotFound, kind, name, strings.Join(suggestions, ", "))
}
