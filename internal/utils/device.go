package utils

import "strings"

const maxUserAgentLen = 500

// DeviceInfo is the parsed device descriptor stored alongside a session so
// that users can tell their sessions apart ("Chrome on Linux").
type DeviceInfo struct {
	Type      string // desktop, mobile, tablet, tv, watch or unknown
	Title     string // "<browser> on <os>"
	UserAgent string // raw header, truncated
}

// ParseUserAgent derives a coarse device descriptor from a User-Agent
// header. It intentionally stays at substring level; anything finer would
// need a full UA database for no session-management benefit.
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" {
		return DeviceInfo{Type: "unknown"}
	}

	ua := strings.ToLower(userAgent)
	devType := "unknown"
	switch {
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android"):
		devType = "mobile"
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		devType = "tablet"
	case strings.Contains(ua, "tv"):
		devType = "tv"
	case strings.Contains(ua, "watch"):
		devType = "watch"
	case strings.Contains(ua, "windows") || strings.Contains(ua, "mac") ||
		strings.Contains(ua, "linux") || strings.Contains(ua, "x11"):
		devType = "desktop"
	}

	if len(userAgent) > maxUserAgentLen {
		userAgent = userAgent[:maxUserAgentLen]
	}
	return DeviceInfo{
		Type:      devType,
		Title:     browserName(ua) + " on " + osName(ua),
		UserAgent: userAgent,
	}
}

func browserName(ua string) string {
	switch {
	case strings.Contains(ua, "edg/"):
		return "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome/"):
		return "Chrome"
	case strings.Contains(ua, "safari/") && !strings.Contains(ua, "chrome"):
		return "Safari"
	case strings.Contains(ua, "firefox/"):
		return "Firefox"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident/"):
		return "IE"
	}
	return "Unknown Browser"
}

func osName(ua string) string {
	switch {
	case strings.Contains(ua, "win"):
		return "Windows"
	case strings.Contains(ua, "mac"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	}
	return "Unknown OS"
}
