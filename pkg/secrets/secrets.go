package secrets

import (
	"fmt"
	"os"
	"strings"
)

// APIKeyEnv is the environment variable holding the upstream credential.
const APIKeyEnv = "OPENAI_API_KEY"

// ConfigurationError reports a missing or unusable credential. It is fatal at
// startup and never retried.
type ConfigurationError struct {
	Key  string
	Hint string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("missing %s", e.Key)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// Resolve returns key trimmed, or a ConfigurationError when it is empty.
func Resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", &ConfigurationError{
			Key:  APIKeyEnv,
			Hint: "Set it in the environment, in the config file as openai-api-key, or with --openai-api-key.",
		}
	}
	return key, nil
}

// APIKeyFromEnv reads the credential from OPENAI_API_KEY.
func APIKeyFromEnv() (string, error) {
	return Resolve(os.Getenv(APIKeyEnv))
}

// MaskKey keeps the first and last four characters of key, for logging.
func MaskKey(key string) string {
	if len(key) < 8 {
		return "••••••"
	}
	return key[:4] + "••••••" + key[len(key)-4:]
}
