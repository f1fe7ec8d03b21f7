package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestObjectName_FollowsDetectedType(t *testing.T) {
	a, err := ObjectName("image/jpeg")
	require.NoError(t, err)
	b, err := ObjectName("image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "products/"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, b)

	_, err = ObjectName("text/html; charset=utf-8")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestDetectImage(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00")
	webp := []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
	html := []byte("<html><script>alert(1)</script></html>")
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)

	cases := []struct {
		name     string
		filename string
		data     []byte
		want     string
		wantErr  bool
	}{
		{"png", "Photo.PNG", pngHeader, "image/png", false},
		{"gif", "anim.gif", gif, "image/gif", false},
		{"webp", "photo.webp", webp, "image/webp", false},
		{"html extension", "x.html", html, "", true},
		{"svg extension", "x.svg", svg, "", true},
		{"html disguised as png", "x.png", html, "", true},
		{"no extension", "photo", pngHeader, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := bytes.NewReader(tc.data)
			got, err := DetectImage(tc.filename, r)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			// Le lecteur est rembobiné pour l'upload
			assert.Equal(t, int64(len(tc.data)), int64(r.Len()))
		})
	}
}

func TestDiskStorage_Save(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStorage(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/products/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	_, err = s.Save(context.Background(), strings.NewReader("<html>"), 6, "text/html")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
