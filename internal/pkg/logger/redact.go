package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactProfileURL masks the vanity segment of a LinkedIn profile URL.
// "https://linkedin.com/in/jane-doe-123" → "https://linkedin.com/in/ja***"
// Values without an /in/ segment are masked entirely.
func RedactProfileURL(url string) string {
	idx := strings.Index(url, "/in/")
	if idx < 0 {
		return "***"
	}
	vanity := strings.TrimSuffix(url[idx+4:], "/")
	if len(vanity) > 2 {
		vanity = vanity[:2] + "***"
	} else {
		vanity = "***"
	}
	return url[:idx+4] + vanity
}
