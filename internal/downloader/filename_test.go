package downloader

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestResolveFilename(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want string
	}{
		{
			name: "output path wins",
			src:  Source{OutputPath: "out/rec", URL: "https://example.com/a.mp3"},
			want: "out/rec",
		},
		{
			name: "url path",
			src:  Source{URL: "https://example.com/media/clip.mp3?x=1"},
			want: "clip.mp3",
		},
		{
			name: "escaped url path",
			src:  Source{URL: "https://example.com/my%20voice.ogg"},
			want: "my voice.ogg",
		},
		{
			name: "trailing slash ignores dotted directory",
			src:  Source{URL: "https://cdn.example.com/v1.2/", ContentType: "audio/wav"},
			want: "audio.wav",
		},
		{
			name: "trailing slash falls through to disposition",
			src: Source{
				URL:                "https://cdn.example.com/v1.2/",
				ContentDisposition: `attachment; filename="take.m4a"`,
			},
			want: "take.m4a",
		},
		{
			name: "disposition when url has no extension",
			src: Source{
				URL:                "https://example.com/download",
				ContentDisposition: `attachment; filename="x.wav"`,
			},
			want: "x.wav",
		},
		{
			name: "unquoted disposition",
			src: Source{
				URL:                "https://example.com/",
				ContentDisposition: "attachment; filename=note.m4a",
			},
			want: "note.m4a",
		},
		{
			name: "disposition without extension falls through",
			src: Source{
				URL:                "https://example.com/download",
				ContentDisposition: `attachment; filename="noext"`,
				ContentType:        "audio/wav",
			},
			want: "audio.wav",
		},
		{
			name: "disposition strips directories",
			src: Source{
				URL:                "https://example.com/download",
				ContentDisposition: `attachment; filename="../../etc/evil.mp3"`,
			},
			want: "evil.mp3",
		},
		{
			name: "content type mp3",
			src:  Source{URL: "https://example.com/stream", ContentType: "audio/mp3"},
			want: "audio.mp3",
		},
		{
			name: "content type m4a",
			src:  Source{URL: "https://example.com/stream", ContentType: "audio/x-m4a"},
			want: "audio.m4a",
		},
		{
			name: "audio/mpeg has no known suffix",
			src:  Source{URL: "https://example.com/stream", ContentType: "audio/mpeg"},
			want: "audio.audio",
		},
		{
			name: "content type match is case-sensitive",
			src:  Source{URL: "https://example.com/x", ContentType: "audio/MP3"},
			want: FallbackFilename,
		},
		{
			name: "capitalised audio is not audio",
			src:  Source{URL: "https://example.com/x", ContentType: "Audio/mp3"},
			want: FallbackFilename,
		},
		{
			name: "non audio content type",
			src:  Source{URL: "https://example.com/stream", ContentType: "text/html"},
			want: "audio.audio",
		},
		{
			name: "nothing at all",
			src:  Source{URL: "https://example.com"},
			want: "audio.audio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFilename(tt.src, DefaultResolvers...))
		})
	}
}

func TestResolveFilenameCustomChain(t *testing.T) {
	fixed := func(Source) (string, bool) { return "fixed.flac", true }

	assert.Equal(t, "fixed.flac", ResolveFilename(Source{URL: "https://e.com/a.mp3"}, fixed, FromURLPath))
	assert.Equal(t, FallbackFilename, ResolveFilename(Source{}))
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "short.mp3", truncateName("short.mp3", 255))
	assert.Equal(t, "abcd.mp3", truncateName("abcdefgh.mp3", 8))
	assert.Equal(t, "abcdefgh.mp3", truncateName("abcdefgh.mp3", 0))

	long := strings.Repeat("x", 40) + ".wav"
	got := truncateName(long, 20)
	assert.Len(t, got, 20)
	assert.True(t, strings.HasSuffix(got, ".wav"))
}

func TestTruncateNameKeepsRunesWhole(t *testing.T) {
	// each "é" is two bytes, so an odd budget lands mid-rune
	long := strings.Repeat("é", 20) + ".mp3"
	for _, max := range []int{9, 10, 15, 3} {
		got := truncateName(long, max)
		assert.True(t, utf8.ValidString(got), "max %d: %q", max, got)
		assert.LessOrEqual(t, len(got), max)
	}
	assert.Equal(t, "éé.mp3", truncateName(long, 9))
	assert.Equal(t, "ééé.mp3", truncateName(long, 10))
	assert.Equal(t, "é", truncateName("ééé", 3))
}
