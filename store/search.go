package store

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/dcode-github/property_rentals/backend/models"
)

// MatchesTerm reports whether term occurs, ignoring case, in the title,
// description or location of p. An empty term matches everything.
func MatchesTerm(p models.Property, term string) bool {
	if term == "" {
		return true
	}
	fold := cases.Fold()
	needle := fold.String(term)
	return strings.Contains(fold.String(p.Title), needle) ||
		strings.Contains(fold.String(p.Description), needle) ||
		strings.Contains(fold.String(p.Location), needle)
}

// FilterByTerm keeps the order of props.
func FilterByTerm(props []models.Property, term string) []models.Property {
	out := make([]models.Property, 0, len(props))
	for _, p := range props {
		if MatchesTerm(p, term) {
			out = append(out, p)
		}
	}
	return out
}
