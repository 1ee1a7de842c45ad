package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/starford/vaultfill/internal/apperr"
)

const (
	DefaultImageModel   = "gpt-image-1"
	DefaultImageSize    = "1024x1024"
	DefaultImageTimeout = 60 * time.Second

	maxPromptNameLen = 80
)

// ErrMissingAPIKey is returned when generation is requested without a key.
var ErrMissingAPIKey = errors.New("OpenAI API key is missing")

// OpenAIConfig configures OpenAIImages.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Size    string
	Timeout time.Duration
	BaseURL string
}

// OpenAIImages generates images for AIIMAGE markers.
type OpenAIImages struct {
	client     openai.Client
	hasKey     bool
	model      string
	size       string
	store      Store
	downloader *Downloader
	dryRun     bool
}

// NewOpenAIImages builds a generator writing into store. Generated images
// delivered as URLs are fetched through dl.
func NewOpenAIImages(cfg OpenAIConfig, store Store, dl *Downloader, dryRun bool) *OpenAIImages {
	if cfg.Model == "" {
		cfg.Model = DefaultImageModel
	}
	if cfg.Size == "" {
		cfg.Size = DefaultImageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImageTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIImages{
		client:     openai.NewClient(opts...),
		hasKey:     cfg.APIKey != "",
		model:      cfg.Model,
		size:       cfg.Size,
		store:      store,
		downloader: dl,
		dryRun:     dryRun,
	}
}

// Generate creates an image for prompt and stores it under dir, returning
// the vault-relative path. In dry-run mode the API is not called.
func (g *OpenAIImages) Generate(ctx context.Context, prompt, dir string) (string, error) {
	if !g.hasKey {
		return "", ErrMissingAPIKey
	}
	rel := path.Join(dir, PromptFilename(prompt))
	if g.dryRun {
		return rel, nil
	}

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(g.model),
		Size:   openai.ImageGenerateParamsSize(g.size),
		N:      openai.Int(1),
	})
	if err != nil {
		return "", fmt.Errorf("provider: openai images: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return "", errors.New("provider: openai returned no image data")
	}

	img := resp.Data[0]
	switch {
	case img.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return "", fmt.Errorf("provider: decode generated image: %w", err)
		}
		if err := g.store.WriteFrom(rel, bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("provider: save %s: %w", rel, err)
		}
	case img.URL != "":
		if err := g.downloader.Fetch(ctx, img.URL, rel); err != nil {
			return "", err
		}
	default:
		return "", errors.New("provider: openai image has neither b64_json nor url")
	}
	return rel, nil
}

// PromptFilename names the file for a generated image: the sanitized
// prompt capped at 80 bytes. Prompts with no Latin letters or digits are
// transliterated first so they do not all collide on one name.
func PromptFilename(prompt string) string {
	name := sanitizeName(prompt)
	if strings.Trim(name, "._-") == "" {
		name = slug.Make(prompt)
	}
	if name == "" {
		name = "image"
	}
	if len(name) > maxPromptNameLen {
		name = name[:maxPromptNameLen]
	}
	return name + ".png"
}

// generationError keeps the category on errors that escape Generate.
func generationError(err error) error {
	return apperr.Generation(err, "image generation failed")
}
