// Package config holds the connection settings for the ISBN Plus search
// service and loads them from the environment, a .env file or a YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingConfig is returned when a fetch is attempted without a complete set of credentials.
var ErrMissingConfig = errors.New("missing required API config")

// Field names one of the three connection settings.
type Field string

const (
	// FieldID is the application id.
	FieldID Field = "id"

	// FieldKey is the application key.
	FieldKey Field = "key"

	// FieldURL is the endpoint base URL.
	FieldURL Field = "url"
)

// Fields lists the settings in the order they are validated.
var Fields = []Field{FieldID, FieldKey, FieldURL}

// EnvName returns the environment variable a field defaults from (e.g. ISBN_PLUS_ID).
func (f Field) EnvName() string {
	return EnvPrefix + "_" + strings.ToUpper(string(f))
}

// Credentials are the three parameters every request carries.
// An empty string means the setting is unset.
type Credentials struct {
	AppID       string `mapstructure:"id"`
	AppKey      string `mapstructure:"key"`
	EndpointURL string `mapstructure:"url"`
}

// Set assigns value to field. Empty values are ignored so that a blank
// override never clears a value that was configured earlier.
// Unknown fields are ignored as well.
func (c *Credentials) Set(field Field, value string) *Credentials {
	if value == "" {
		return c
	}
	switch field {
	case FieldID:
		c.AppID = value
	case FieldKey:
		c.AppKey = value
	case FieldURL:
		c.EndpointURL = value
	}
	return c
}

// Get returns the value of field, or "" for unknown fields.
func (c Credentials) Get(field Field) string {
	switch field {
	case FieldID:
		return c.AppID
	case FieldKey:
		return c.AppKey
	case FieldURL:
		return c.EndpointURL
	default:
		return ""
	}
}

// Has reports whether field holds a non-empty value.
func (c Credentials) Has(field Field) bool {
	return c.Get(field) != ""
}

// Merge applies every non-empty setting of other on top of c.
func (c *Credentials) Merge(other Credentials) *Credentials {
	for _, f := range Fields {
		c.Set(f, other.Get(f))
	}
	return c
}

// Missing returns the fields that are still unset.
func (c Credentials) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if !c.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether all three settings are present.
func (c Credentials) Complete() bool {
	return len(c.Missing()) == 0
}

// Validate returns a *ConfigurationError when any setting is unset.
func (c Credentials) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// ConfigurationError reports credentials that were incomplete at fetch time.
type ConfigurationError struct {
	Missing []Field
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = f.EnvName()
	}
	return fmt.Sprintf("%v: %s", ErrMissingConfig, strings.Join(names, ", "))
}

// Unwrap lets errors.Is match ErrMissingConfig.
func (e *ConfigurationError) Unwrap() error {
	return ErrMissingConfig
}
