package config

import (
	"fmt"
	"os"
	"strings"
)

// Secrets read by the simulator. Each name also accepts a NAME_FILE variant
// pointing at a file that holds the value.
const (
	SecretPGPassword = "PGPASSWORD"
	SecretAPIUser    = "SENTIENT_API_USER"
	SecretAPIPass    = "SENTIENT_API_PASS"
	SecretTLSCert    = "SENTIENT_TLS_CERT"
	SecretTLSKey     = "SENTIENT_TLS_KEY"
	SecretMQTTUser   = "MQTT_USERNAME"
	SecretMQTTPass   = "MQTT_PASSWORD"
)

// SecretFileError reports a NAME_FILE variable whose file could not be read.
// The secret content is never included.
type SecretFileError struct {
	Env  string
	Path string
	Err  error
}

func (e *SecretFileError) Error() string {
	return fmt.Sprintf("failed to read secret from %s=%s: %v", e.Env, e.Path, e.Err)
}

func (e *SecretFileError) Unwrap() error {
	return e.Err
}

// ResolveSecret returns the value of envName. NAME_FILE takes precedence over
// NAME; file content is trimmed of surrounding whitespace. Neither set yields "".
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if path := os.Getenv(fileEnv); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", &SecretFileError{Env: fileEnv, Path: path, Err: err}
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// ResolveSecretPair resolves two secrets that are only usable together, such as
// a user and password or a certificate and key. ok is false unless both are set.
func ResolveSecretPair(first, second string) (a, b string, ok bool, err error) {
	if a, err = ResolveSecret(first); err != nil {
		return "", "", false, err
	}
	if b, err = ResolveSecret(second); err != nil {
		return "", "", false, err
	}
	return a, b, a != "" && b != "", nil
}
