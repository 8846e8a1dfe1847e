package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ImageConfig configures the image-generation endpoint.
type ImageConfig struct {
	URL     string
	Size    string
	Quality string
	Style   string
	Timeout time.Duration
}

// ImageToolName identifies the image-generation tool; callers use it to
// detect a direct image URL in an invocation record.
const ImageToolName = "imageGeneration"

// ImageGenerationTool renders an image for a prompt through the hosted
// image backend and returns the resulting URL as a string.
type ImageGenerationTool struct {
	cfg    ImageConfig
	client *http.Client
}

func NewImageGenerationTool(cfg ImageConfig) *ImageGenerationTool {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ImageGenerationTool{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (t *ImageGenerationTool) Name() string { return ImageToolName }

func (t *ImageGenerationTool) Description() string {
	return "Generates an image from a text prompt and returns its URL."
}

func (t *ImageGenerationTool) Schema() []Field {
	return []Field{{
		Name:        "prompt",
		Type:        "string",
		Description: "A text description of the image to generate.",
	}}
}

func (t *ImageGenerationTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	url, err := t.generate(ctx, stringArg(args, "prompt"))
	if err != nil {
		return nil, &ExecutionError{Tool: t.Name(), Err: err}
	}
	return url, nil
}

func (t *ImageGenerationTool) generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"prompt":  prompt,
		"size":    t.cfg.Size,
		"n":       1,
		"quality": t.cfg.Quality,
		"style":   t.cfg.Style,
	}
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("image POST %s failed: %s", t.cfg.URL, resp.Status)
	}
	var out struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", errors.New("no image URL returned")
	}
	return out.Data[0].URL, nil
}
