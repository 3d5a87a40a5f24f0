package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adalundhe/aide/core/providers"
	"github.com/adalundhe/aide/core/storage"
)

// GenerateImageTool renders an image via the provider's images API and
// saves it under the data directory.
type GenerateImageTool struct {
	generator providers.ImageGenerator
	outputDir string
}

func NewGenerateImageTool(generator providers.ImageGenerator, outputDir string) *GenerateImageTool {
	return &GenerateImageTool{generator: generator, outputDir: outputDir}
}

func (t *GenerateImageTool) Name() string { return "generate_image" }

func (t *GenerateImageTool) Description() string {
	return "Generate an image from a text prompt and save it to disk"
}

func (t *GenerateImageTool) Schema() map[string]any {
	return map[string]any{
		"prompt": "string, description of the image to generate",
	}
}

type generateImageArgs struct {
	Prompt string `json:"prompt"`
}

func (t *GenerateImageTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var a generateImageArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrInvalidArgs)
	}

	data, err := t.generator.GenerateImage(ctx, a.Prompt)
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}

	if err := storage.EnsureDir(t.outputDir, 0700); err != nil {
		return "", err
	}

	path := filepath.Join(t.outputDir, fmt.Sprintf("image-%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return "image saved to " + path, nil
}
