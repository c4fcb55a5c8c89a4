package config

import (
	"fmt"
	"strings"
	"time"

	"switchboard/internal/identity"
	"switchboard/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateNonNegative rejects negative durations.
func ValidateNonNegative(field string, value time.Duration) error {
	if value < 0 {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "must not be negative",
		}
	}
	return nil
}

// ValidateServiceNames checks that every entry can name a service.
func ValidateServiceNames(field string, names []string) error {
	seen := make(map[string]bool, len(names))
	for n, name := range names {
		if err := identity.New(name, identity.RootUserID).Validate(); err != nil {
			return ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, n),
				Value:   name,
				Message: err.Error(),
			}
		}
		if seen[name] {
			return ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, n),
				Value:   name,
				Message: "is listed twice",
			}
		}
		seen[name] = true
	}
	return nil
}

// Validate checks the configuration. source names the file the values came
// from and is copied into every reported error.
func (c BrokerConfig) Validate(source string) *ConfigurationErrorCollection {
	errs := &ConfigurationErrorCollection{}

	errs.Add(source, CategoryCatalog, ValidateRequired("catalog.path", c.Catalog.Path, "catalog"),
		"set catalog.path to the directory holding service manifests")
	errs.Add(source, CategoryCatalog, ValidateNonNegative("catalog.resolveTimeout", c.Catalog.ResolveTimeout), "")

	errs.Add(source, CategoryBroker, ValidateServiceNames("broker.singletons", c.Broker.Singletons), "")
	errs.Add(source, CategoryBroker, ValidateServiceNames("broker.autoStart", c.Broker.AutoStart), "")
	errs.Add(source, CategoryBroker, ValidateNonNegative("broker.idleTimeout", c.Broker.IdleTimeout),
		"use 0 to keep idle services running")

	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		errs.Add(source, CategoryLogging, ValidateOneOf("logging.level", c.Logging.Level, []string{"debug", "info", "warn", "error"}), "")
	}
	errs.Add(source, CategoryLogging, ValidateOneOf("logging.format", c.Logging.Format, []string{string(logging.FormatText), string(logging.FormatJSON)}), "")

	if c.Metrics.Enabled {
		errs.Add(source, CategoryMetrics, ValidateRequired("metrics.address", c.Metrics.Address, "metrics"),
			"set metrics.address, for example "+DefaultMetricsAddress)
	}
	return errs
}
