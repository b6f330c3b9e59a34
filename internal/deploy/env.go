package deploy

import "github.com/shipway/shipway/internal/constants"

// BuildEnv computes the environment forwarded to the service. Only
// allow-listed variables with a defined value are included; unset variables
// are omitted rather than forwarded as empty strings, so platform-side
// defaults are not clobbered. The unbuffered-output flag is always injected
// regardless of caller configuration.
func BuildEnv(allowList []string, lookup func(string) (string, bool)) map[string]string {
	env := make(map[string]string, len(allowList)+1)

	for _, key := range allowList {
		if value, ok := lookup(key); ok {
			env[key] = value
		}
	}

	env[constants.UnbufferedEnvKey] = constants.UnbufferedEnvValue

	return env
}

// ChainLookup returns a lookup that consults primary first, then each
// fallback map in order. Used to layer hydrated parameter-store values under
// the invoking environment.
func ChainLookup(primary func(string) (string, bool), fallbacks ...map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if value, ok := primary(key); ok {
			return value, true
		}
		for _, m := range fallbacks {
			if value, ok := m[key]; ok {
				return value, true
			}
		}
		return "", false
	}
}
