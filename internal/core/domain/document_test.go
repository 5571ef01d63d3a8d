package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Example.COM/Visas",
			want: "https://example.com/Visas",
		},
		{
			name: "strips fragment",
			in:   "https://example.com/page#section-2",
			want: "https://example.com/page",
		},
		{
			name: "strips trailing slash",
			in:   "https://example.com/page/",
			want: "https://example.com/page",
		},
		{
			name: "preserves query",
			in:   "https://example.com/search?q=permit",
			want: "https://example.com/search?q=permit",
		},
		{
			name: "trims whitespace",
			in:   "  https://example.com/a  ",
			want: "https://example.com/a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	in := "HTTPS://Example.com/Page/#top"
	once := NormalizeURL(in)
	assert.Equal(t, once, NormalizeURL(once))
}

func TestSameOrigin(t *testing.T) {
	assert.True(t, SameOrigin("https://example.com/a", "https://EXAMPLE.com/b"))
	assert.False(t, SameOrigin("https://example.com/a", "https://other.com/a"))
	assert.False(t, SameOrigin("relative/path", "https://example.com"))
}
