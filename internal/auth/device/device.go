// Package device summarizes the client a sign-in came from.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info is the parsed view of a User-Agent header.
type Info struct {
	Browser string
	Version string
	OS      string
	Mobile  bool
	Bot     bool
}

// Parse reads a User-Agent header. Empty input yields an Info with unknown fields.
func Parse(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{Browser: "unknown", OS: "unknown"}
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	info := Info{
		Browser: strings.TrimSpace(browser),
		Version: majorVersion(version),
		OS:      strings.TrimSpace(ua.OS()),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
	if info.Mobile && ua.Platform() != "" {
		info.OS = ua.Platform()
	}
	if info.Browser == "" {
		info.Browser = "unknown"
	}
	if info.OS == "" {
		info.OS = "unknown"
	}
	return info
}

// Display renders "Browser on OS", e.g. "Chrome on Intel Mac OS X 10_15_7".
func (i Info) Display() string {
	if i.Browser == "unknown" && i.OS == "unknown" {
		return "Unknown Device"
	}
	return i.Browser + " on " + i.OS
}

// LogAttrs returns slog key/value pairs for the device.
func (i Info) LogAttrs() []any {
	return []any{
		"device", i.Display(),
		"device_browser_version", i.Version,
		"device_mobile", i.Mobile,
		"device_bot", i.Bot,
	}
}

func majorVersion(version string) string {
	major, _, _ := strings.Cut(version, ".")
	if major == "" {
		return "unknown"
	}
	return major
}
