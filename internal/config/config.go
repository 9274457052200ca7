// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Salesforce SalesforceConfig
	Workbook   WorkbookConfig
	Sync       SyncConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0,
	// no limit: a sync run completes within the request)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m,
	// a run makes several remote round trips)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// SalesforceConfig holds remote store connection settings and the remote
// field names stamped onto every synchronized line item.
type SalesforceConfig struct {
	// InstanceURL is the Salesforce instance base URL (required)
	InstanceURL string `env:"SF_INSTANCE_URL" required:"true"`

	// ClientID is the connected app consumer key (required)
	ClientID string `env:"SF_CLIENT_ID" required:"true"`

	// ClientSecret is the connected app consumer secret (required)
	ClientSecret string `env:"SF_CLIENT_SECRET" required:"true"`

	// APIVersion is the REST API version (default: 59.0)
	APIVersion string `env:"SF_API_VERSION" default:"59.0"`

	// ObjectType is the sObject line items are created as
	ObjectType string `env:"SF_OBJECT_TYPE" default:"Opportunity_Line_Item__c"`

	// ParentField is the remote parent-id field name
	ParentField string `env:"SF_PARENT_FIELD" default:"Opportunity__c"`

	// ActiveField is the remote active-flag field name
	ActiveField string `env:"SF_ACTIVE_FIELD" default:"Active__c"`

	// RevisionField is the remote revision-number field name
	RevisionField string `env:"SF_REVISION_FIELD" default:"Revision_Number__c"`

	// DiscountField is the field rescaled from fraction to percentage
	// before transmission; empty disables the rescale
	DiscountField string `env:"SF_DISCOUNT_FIELD" default:"Discount__c"`
}

// WorkbookConfig holds spreadsheet source settings.
type WorkbookConfig struct {
	// Path is the xlsx workbook file (required)
	Path string `env:"WORKBOOK_PATH" envAlt:"WORKBOOK_FILE" required:"true"`

	// ParameterSheet names the sheet holding the JSON parameter column
	ParameterSheet string `env:"WORKBOOK_PARAMETER_SHEET" default:"Parameters"`

	// LogSheet names the sheet run logs are appended to; created on first use
	LogSheet string `env:"WORKBOOK_LOG_SHEET" default:"Log"`
}

// SyncConfig holds run orchestration settings.
type SyncConfig struct {
	// LineItemGroup is the grouping key whose nested object carries the
	// parent identifier
	LineItemGroup string `env:"SYNC_LINE_ITEM_GROUP" default:"oli"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return fmt.Sprintf(":%d", c.Port)
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
