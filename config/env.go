package config

import (
	"fmt"
	"os"
	"strings"
)

// RequiredEnv lists the variables the server refuses to start without:
// the database endpoint and the access key tokens are signed with.
var RequiredEnv = []string{"DB_HOST", "API_SECRET"}

// MissingEnvError names every required variable that was empty.
type MissingEnvError struct {
	Keys []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Keys, ", "))
}

// RequireEnv returns a *MissingEnvError when any key is unset or blank.
func RequireEnv(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(os.Getenv(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &MissingEnvError{Keys: missing}
	}
	return nil
}

// MustRequireEnv stops the process when a required variable is missing.
func MustRequireEnv(keys ...string) {
	if err := RequireEnv(keys...); err != nil {
		GetLogger().WithField("field", "startup").Fatal(err.Error())
	}
}
