package domain

import "testing"

func TestMediaResolved(t *testing.T) {
	tests := []struct {
		name     string
		media    *Media
		expected bool
	}{
		{"with source url", &Media{ID: 1, SourceURL: "https://cdn.example.com/a.jpg"}, true},
		{"empty source url", &Media{ID: 1}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.media.Resolved() != tt.expected {
				t.Errorf("expected Resolved() = %v", tt.expected)
			}
		})
	}
}

func TestAuthorPreferredAvatar(t *testing.T) {
	tests := []struct {
		name     string
		author   *Author
		expected string
	}{
		{
			name: "largest size wins",
			author: &Author{AvatarURLs: map[string]string{
				"24": "https://a/24", "48": "https://a/48", "96": "https://a/96",
			}},
			expected: "https://a/96",
		},
		{
			name:     "falls back to smaller size",
			author:   &Author{AvatarURLs: map[string]string{"24": "https://a/24"}},
			expected: "https://a/24",
		},
		{
			name:     "unknown size",
			author:   &Author{AvatarURLs: map[string]string{"512": "https://a/512"}},
			expected: "https://a/512",
		},
		{"no avatars", &Author{}, ""},
		{"nil author", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.author.PreferredAvatar(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
