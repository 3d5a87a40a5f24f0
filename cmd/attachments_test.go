package cmd

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid PNG header plus padding so DetectContentType sniffs image/png.
var pngBytes = append(
	[]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a},
	make([]byte, 16)...,
)

func TestResolveAttachmentsInlinesLocalImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0600))

	resolved, err := resolveAttachments([]string{path})
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	assert.True(t, strings.HasPrefix(resolved[0], "data:image/png;base64,"))
	encoded := strings.TrimPrefix(resolved[0], "data:image/png;base64,")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, decoded)
}

func TestResolveAttachmentsPassesURLsThrough(t *testing.T) {
	in := []string{
		"data:image/png;base64,AAAA",
		"https://example.com/cat.jpg",
	}
	resolved, err := resolveAttachments(in)
	require.NoError(t, err)
	assert.Equal(t, in, resolved)
}

func TestResolveAttachmentsRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0600))

	_, err := resolveAttachments([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestResolveAttachmentsMissingFile(t *testing.T) {
	_, err := resolveAttachments([]string{filepath.Join(t.TempDir(), "absent.png")})
	assert.Error(t, err)
}
