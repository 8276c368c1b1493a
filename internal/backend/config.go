package backend

import (
	"errors"
	"fmt"
	"strings"

	"aspirebot/internal/config"
	gsheet "aspirebot/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.Backend.Type)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.Backend.Type)
	}

	return Config{
		Type:          backendType,
		DataDirectory: appConfig.Backend.DataDir,

		Sheets: gsheet.Config{
			SpreadsheetID:      appConfig.GSheet.SpreadsheetID,
			CredentialsJSON:    appConfig.GSheet.CredentialsJSON,
			CredentialsFile:    appConfig.GSheet.CredentialsFile,
			ConfigurationRange: appConfig.GSheet.ConfigurationRange,
			CategoriesRange:    appConfig.GSheet.CategoriesRange,
			AccountsRange:      appConfig.GSheet.AccountsRange,
			DatesRange:         appConfig.GSheet.DatesRange,
		},

		SQLiteDBPath: appConfig.Queue.SQLitePath,
		AMQPURL:      appConfig.Queue.AMQPURL,
		AMQPExchange: appConfig.Queue.Exchange,
		AMQPQueue:    appConfig.Queue.Queue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case QueuedBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for queued backend")
		}
		// AMQP is optional; the worker sweep covers missing messages.
		fallthrough
	case SheetsBackend:
		if strings.TrimSpace(c.Sheets.SpreadsheetID) == "" {
			return fmt.Errorf("spreadsheet ID is required for %s backend", c.Type)
		}
	case MemoryBackend:
		// DataDirectory defaults to "data" when empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SheetsBackend, QueuedBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
