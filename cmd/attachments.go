package cmd

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// maxAttachmentBytes caps how large an image file may be inlined.
const maxAttachmentBytes = 20 * 1024 * 1024

// resolveAttachments turns local file paths into data URLs. Entries that
// already are data or http(s) URLs pass through untouched.
func resolveAttachments(attachments []string) ([]string, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	resolved := make([]string, 0, len(attachments))
	for _, att := range attachments {
		if strings.HasPrefix(att, "data:") ||
			strings.HasPrefix(att, "http://") ||
			strings.HasPrefix(att, "https://") {
			resolved = append(resolved, att)
			continue
		}

		data, err := os.ReadFile(att)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", att, err)
		}
		if len(data) > maxAttachmentBytes {
			return nil, fmt.Errorf("attachment %s: exceeds %d bytes", att, maxAttachmentBytes)
		}

		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			return nil, fmt.Errorf("attachment %s: not an image (detected %s)", att, mime)
		}
		resolved = append(resolved, fmt.Sprintf("data:%s;base64,%s",
			mime, base64.StdEncoding.EncodeToString(data)))
	}
	return resolved, nil
}
