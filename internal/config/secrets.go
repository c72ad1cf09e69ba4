package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Secrets carries the credentials and identifiers the Sink Gateway needs
// to talk to the downstream document database, plus the optional
// JSON-API key. Loaded from the process environment, with an optional
// .env file read first (ignored if absent).
type Secrets struct {
	SinkToken      string
	DatabaseID     string
	DataSourceID   string
	JSONAPIKey     string
}

// LoadSecrets reads a .env file (if present) then the process
// environment. envPath may be empty, in which case only the process
// environment is consulted.
func LoadSecrets(envPath string) (Secrets, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			if !os.IsNotExist(err) {
				return Secrets{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
			}
		}
	}

	s := Secrets{
		SinkToken:    os.Getenv("SINK_TOKEN"),
		DatabaseID:   os.Getenv("SINK_DATABASE_ID"),
		DataSourceID: os.Getenv("SINK_DATA_SOURCE_ID"),
		JSONAPIKey:   os.Getenv("JSON_API_KEY"),
	}

	if s.SinkToken == "" || s.DatabaseID == "" || s.DataSourceID == "" {
		return Secrets{}, fmt.Errorf("%w: SINK_TOKEN, SINK_DATABASE_ID and SINK_DATA_SOURCE_ID must be set", ErrInvalidConfig)
	}
	return s, nil
}
