package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Salesforce validation
	if c.Salesforce.InstanceURL == "" {
		errs = append(errs, "SF_INSTANCE_URL is required")
	} else if u, err := url.Parse(c.Salesforce.InstanceURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("SF_INSTANCE_URL (%q) must be an absolute URL", c.Salesforce.InstanceURL))
	}
	if c.Salesforce.ClientID == "" {
		errs = append(errs, "SF_CLIENT_ID is required")
	}
	if c.Salesforce.ClientSecret == "" {
		errs = append(errs, "SF_CLIENT_SECRET is required")
	}
	if c.Salesforce.ObjectType == "" {
		errs = append(errs, "SF_OBJECT_TYPE must not be empty")
	}
	if c.Salesforce.ParentField == "" {
		errs = append(errs, "SF_PARENT_FIELD must not be empty")
	}
	if c.Salesforce.ActiveField == "" {
		errs = append(errs, "SF_ACTIVE_FIELD must not be empty")
	}
	if c.Salesforce.RevisionField == "" {
		errs = append(errs, "SF_REVISION_FIELD must not be empty")
	}

	// Workbook validation
	if c.Workbook.Path == "" {
		errs = append(errs, "WORKBOOK_PATH is required")
	}
	if c.Workbook.ParameterSheet == "" {
		errs = append(errs, "WORKBOOK_PARAMETER_SHEET must not be empty")
	}
	if c.Workbook.LogSheet == "" {
		errs = append(errs, "WORKBOOK_LOG_SHEET must not be empty")
	}

	// Sync validation
	if c.Sync.LineItemGroup == "" {
		errs = append(errs, "SYNC_LINE_ITEM_GROUP must not be empty")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Salesforce: {InstanceURL: %q, ClientID: [MASKED], ClientSecret: [MASKED], ObjectType: %q}, ",
		c.Salesforce.InstanceURL, c.Salesforce.ObjectType))
	b.WriteString(fmt.Sprintf("Workbook: {Path: %q, ParameterSheet: %q, LogSheet: %q}, ",
		c.Workbook.Path, c.Workbook.ParameterSheet, c.Workbook.LogSheet))
	b.WriteString(fmt.Sprintf("Sync: {LineItemGroup: %q}, ", c.Sync.LineItemGroup))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
