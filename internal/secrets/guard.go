// Package secrets guards and sources sensitive service configuration.
// Validation is pure and runs before the first network call; hydration fills
// allow-listed variables from the cloud parameter store without overriding
// locally supplied values.
package secrets

import (
	"strings"

	"github.com/shipway/shipway/internal/constants"
	apperrors "github.com/shipway/shipway/internal/errors"
)

// Validate checks each recognized sensitive variable in env for raw PEM key
// material. Sensitive variables are expected to carry base64-encoded values;
// a PEM header in the value is an operator mistake that would otherwise leak
// key material into the platform payload. Values are never logged or echoed.
func Validate(env map[string]string) error {
	for key, value := range env {
		if !strings.Contains(key, constants.SensitiveKeyMarker) {
			continue
		}
		if strings.Contains(value, constants.PEMHeaderMarker) {
			return apperrors.NewSecretFormat(key)
		}
	}
	return nil
}
