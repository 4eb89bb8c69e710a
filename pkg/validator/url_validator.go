package validator

import (
	"net/url"
	"regexp"
	"strings"
)

// MaxURLLength is the longest destination URL accepted
const MaxURLLength = 2083

var (
	// urlRegex rejects whitespace and an empty authority before parsing
	urlRegex = regexp.MustCompile(`^(?i)https?://[^\s/$.?#][^\s]*$`)

	// allowedSchemes lists permitted URL schemes
	allowedSchemes = map[string]bool{
		"http":  true,
		"https": true,
	}
)

// ValidateURL checks if a string is an absolute http(s) URL with a host.
// The URL is not normalized; callers store it exactly as given.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL cannot be empty"}
	}

	if len(rawURL) > MaxURLLength {
		return &ValidationError{Field: "url", Message: "URL too long (max 2083 characters)"}
	}

	if !urlRegex.MatchString(rawURL) {
		return &ValidationError{Field: "url", Message: "Invalid URL format"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "Invalid URL structure"}
	}

	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return &ValidationError{Field: "url", Message: "Unsupported URL scheme"}
	}

	if parsed.Hostname() == "" {
		return &ValidationError{Field: "url", Message: "URL must contain a host"}
	}

	return nil
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
