// Package device reduces a User-Agent header to a coarse description that is
// safe to keep in an audit trail.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Describe returns "<browser> on <os>" with "bot" appended for crawlers.
// An empty header yields an empty description.
func Describe(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "unknown"
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = "unknown"
	}
	desc := browser + " on " + os
	if ua.Mobile() {
		desc += " (mobile)"
	}
	if ua.Bot() {
		desc += " (bot)"
	}
	return desc
}
