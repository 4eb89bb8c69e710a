// Package attributes derives the privacy-scrubbed attributes stored on a click event.
package attributes

import "strings"

const unknownLabel = "Unknown"

// UserAgentInfo is the coarse classification of a User-Agent header
type UserAgentInfo struct {
	Device  string `json:"device"`
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

var (
	mobileKeywords  = []string{"mobile", "android", "iphone", "ipod", "blackberry", "windows phone"}
	tabletKeywords  = []string{"ipad", "tablet"}
	desktopKeywords = []string{"windows", "macintosh", "linux", "x11"}
)

// ClassifyUserAgent classifies a raw User-Agent with case-insensitive keyword matching.
// Per axis the first matching rule wins, so the order of checks below is significant.
func ClassifyUserAgent(userAgent string) UserAgentInfo {
	ua := strings.ToLower(userAgent)

	return UserAgentInfo{
		Device:  detectDevice(ua),
		Browser: detectBrowser(ua),
		OS:      detectOS(ua),
	}
}

func detectDevice(ua string) string {
	switch {
	case containsAny(ua, mobileKeywords):
		return "mobile"
	case containsAny(ua, tabletKeywords):
		return "tablet"
	case containsAny(ua, desktopKeywords):
		return "desktop"
	}
	return "unknown"
}

func detectBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "edg"):
		return "Edge"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		// chrome already matched above, so this is Safari proper
		return "Safari"
	case strings.Contains(ua, "opera"), strings.Contains(ua, "opr"):
		return "Opera"
	}
	return unknownLabel
}

func detectOS(ua string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macos"):
		return "macOS"
	case strings.Contains(ua, "linux") && !strings.Contains(ua, "android"):
		return "Linux"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "ios"), strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "iOS"
	}
	return unknownLabel
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
