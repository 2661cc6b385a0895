package config

import (
	"fmt"
	"os"
	"strings"
)

// readSecret resolves a secret from the environment first, then from the
// standard Docker Secrets path. Required secrets produce an error when absent.
func readSecret(envName, secretName string, required bool) (string, error) {
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		return v, nil
	}

	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		if required {
			return "", fmt.Errorf("secret %s not set and secret file %s unreadable: %w", envName, filePath, err)
		}
		return "", nil
	}
	secret := strings.TrimSpace(string(secretBytes))
	if required && secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
