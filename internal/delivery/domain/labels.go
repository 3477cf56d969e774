package domain

import "strings"

// Labels are the placeholder texts substituted for dangling or missing references.
type Labels struct {
	UnknownProduct     string
	Uncategorized      string
	AddressNotInformed string
}

// DefaultLabels returns the built-in placeholder texts.
func DefaultLabels() Labels {
	return Labels{
		UnknownProduct:     "Unknown product",
		Uncategorized:      "Uncategorized",
		AddressNotInformed: "Address not informed",
	}
}

// WithDefaults fills any blank label with its built-in value.
func (l Labels) WithDefaults() Labels {
	defaults := DefaultLabels()
	if strings.TrimSpace(l.UnknownProduct) == "" {
		l.UnknownProduct = defaults.UnknownProduct
	}
	if strings.TrimSpace(l.Uncategorized) == "" {
		l.Uncategorized = defaults.Uncategorized
	}
	if strings.TrimSpace(l.AddressNotInformed) == "" {
		l.AddressNotInformed = defaults.AddressNotInformed
	}
	return l
}
