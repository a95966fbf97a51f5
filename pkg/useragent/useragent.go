// Package useragent turns raw User-Agent strings into short human-readable
// summaries for the admin review listings.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

// Summary extracts a display name from a User-Agent string in the form
// "Browser on OS" (e.g. "Chrome on Linux"). Unknown or empty strings map to
// "Unknown client"; the raw value is still stored alongside it.
func Summary(userAgentString string) string {
	if strings.TrimSpace(userAgentString) == "" {
		return "Unknown client"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)
	os := strings.TrimSpace(ua.OS())

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown client"
	}
}
