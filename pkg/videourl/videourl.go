// Package videourl validates that a URL points at a recognized video
// source. Matching is purely syntactic, no network I/O.
package videourl

import "regexp"

var patterns = []*regexp.Regexp{
	// youtube
	regexp.MustCompile(`^((?:https?:)?//)?((?:www|m)\.)?((?:youtube(-nocookie)?\.com|youtu\.be))(/(?:[\w\-]+\?v=|embed/|v/)?)([\w\-]+)(\S+)?$`),
	// vimeo
	regexp.MustCompile(`(?:http|https)?://(?:www\.)?vimeo\.com/(?:channels/(?:\w+/)?|groups/(?:[^/]*)/videos/|)(?:\d+)`),
	// dailymotion
	regexp.MustCompile(`(?:https?://)?(?:www\.)?dai\.?ly(?:motion)?(?:\.com)?/?.*(?:video|embed)?(?:.*v=|v/|/)[\w\-]+`),
	// any https-hosted video file
	regexp.MustCompile(`https://(.*)`),
}

// IsValid reports whether url matches one of the recognized video
// source shapes.
func IsValid(url string) bool {
	for _, p := range patterns {
		if p.MatchString(url) {
			return true
		}
	}

	return false
}
