package log

import (
	"net/url"
	"strings"
)

var sensitiveKeywords = []string{
	"password", "passwd", "pwd",
	"api_key", "apikey", "api-key",
	"token", "secret", "authorization",
	"credential", "private_key", "cookie",
}

// SanitizeField masks values whose key looks sensitive.
// Proxy and DSN values keep their host but lose the password.
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)

	if strings.Contains(lowerKey, "proxy") || strings.Contains(lowerKey, "dsn") {
		return sanitizeURL(value)
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return sanitizeToken(value)
		}
	}

	return value
}

// sanitizeToken masks token/password values showing only first 4 and last 4 characters
func sanitizeToken(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}

	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// sanitizeURL hides the password of a URL-like value.
// MySQL DSNs (user:pass@tcp(host)/db) are not URLs and are handled by hand.
func sanitizeURL(value string) string {
	if u, err := url.Parse(value); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}

	at := strings.LastIndex(value, "@")
	if at < 0 {
		return value
	}
	userinfo := value[:at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return value
	}
	return userinfo[:colon] + ":xxxxx" + value[at:]
}
