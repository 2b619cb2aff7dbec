package videourl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", true},
		{"youtube embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", true},
		{"youtube mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"youtube no scheme", "www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"vimeo", "https://vimeo.com/148751763", true},
		{"vimeo channel", "https://vimeo.com/channels/staffpicks/148751763", true},
		{"dailymotion", "https://www.dailymotion.com/video/x8q4pyd", true},
		{"dailymotion short", "https://dai.ly/x8q4pyd", true},
		{"https video file", "https://cdn.example.com/clips/intro.mp4", true},
		{"plain http file", "http://example.com/video.mp4", false},
		{"not a url", "watch this", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.url), tt.url)
		})
	}
}
