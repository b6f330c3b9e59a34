package constants

// SensitiveKeyMarker identifies environment variable names that carry key
// material. Values of such variables must be base64-encoded, never raw PEM.
const SensitiveKeyMarker = "PRIVATE_KEY"

// PEMHeaderMarker is the unmistakable sign of unencoded key material. Any
// sensitive variable whose value contains it is rejected before the first
// network call.
const PEMHeaderMarker = "-----BEGIN"

// UnbufferedEnvKey is always injected into the service environment so that
// application output streams to the platform log sink without buffering.
const UnbufferedEnvKey = "PYTHONUNBUFFERED"

// UnbufferedEnvValue enables unbuffered output.
const UnbufferedEnvValue = "1"

// HeaderSeparatorLength is the width of section header separators in terminal output.
const HeaderSeparatorLength = 40
