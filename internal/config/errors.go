package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Category groups configuration errors by the config.yaml section they
// were found in.
type Category string

const (
	CategoryCatalog Category = "catalog"
	CategoryBroker  Category = "broker"
	CategoryLogging Category = "logging"
	CategoryMetrics Category = "metrics"
)

// categories fixes the order sections are reported in.
var categories = []Category{CategoryCatalog, CategoryBroker, CategoryLogging, CategoryMetrics}

// ConfigurationError is one problem found in a config file.
type ConfigurationError struct {
	File       string   `json:"file"`
	Category   Category `json:"category"`
	Err        error    `json:"-"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("%s [%s] %v", filepath.Base(ce.File), ce.Category, ce.Err)
}

// Unwrap exposes the underlying ValidationError.
func (ce ConfigurationError) Unwrap() error {
	return ce.Err
}

// ConfigurationErrorCollection holds every problem found while loading a
// config file.
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// Error implements the error interface for the collection
func (cec *ConfigurationErrorCollection) Error() string {
	switch len(cec.Errors) {
	case 0:
		return "no configuration errors"
	case 1:
		return cec.Errors[0].Error()
	}
	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Count returns the number of errors in the collection
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// Add records err under category. A nil err is ignored.
func (cec *ConfigurationErrorCollection) Add(file string, category Category, err error, suggestion string) {
	if err == nil {
		return
	}
	cec.Errors = append(cec.Errors, ConfigurationError{
		File:       file,
		Category:   category,
		Err:        err,
		Suggestion: suggestion,
	})
}

// ByCategory returns the errors found in one section.
func (cec *ConfigurationErrorCollection) ByCategory(category Category) []ConfigurationError {
	var filtered []ConfigurationError
	for _, err := range cec.Errors {
		if err.Category == category {
			filtered = append(filtered, err)
		}
	}
	return filtered
}

// GetSummary lists the errors section by section with their suggestions.
func (cec *ConfigurationErrorCollection) GetSummary() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s has %d configuration errors:", filepath.Base(cec.Errors[0].File), len(cec.Errors))
	for _, category := range categories {
		errs := cec.ByCategory(category)
		if len(errs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:", category)
		for _, err := range errs {
			fmt.Fprintf(&b, "\n  - %v", err.Err)
			if err.Suggestion != "" {
				fmt.Fprintf(&b, " (%s)", err.Suggestion)
			}
		}
	}
	return b.String()
}
