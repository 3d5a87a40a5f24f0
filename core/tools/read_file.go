package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// maxReadBytes caps how much of a file is handed back to the model.
const maxReadBytes = 64 * 1024

// ReadFileTool reads a text file from disk.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read a text file from disk and return its contents"
}

func (t *ReadFileTool) Schema() map[string]any {
	return map[string]any{
		"path": "string, path to the file to read",
	}
}

type readFileArgs struct {
	Path string `json:"path"`
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	var a readFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Path == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidArgs)
	}

	path, err := filepath.Abs(a.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	truncated := len(data) > maxReadBytes
	if truncated {
		data = data[:maxReadBytes]
		// A rune split by the cap costs at most UTFMax-1 trailing bytes.
		// Anything still invalid after that is not a split rune.
		for i := 0; i < utf8.UTFMax && len(data) > 0 && !utf8.Valid(data); i++ {
			data = data[:len(data)-1]
		}
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read %s: not a text file", path)
	}
	if truncated {
		return fmt.Sprintf("%s\n[truncated at %d bytes]", data, maxReadBytes), nil
	}
	return string(data), nil
}
