package provider

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const maxFilenameLen = 120

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]`)

	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)

// Store is the part of the vault storage the downloader writes through.
type Store interface {
	Exists(path string) bool
	WriteFrom(path string, r io.Reader) error
}

// Downloader materializes image references as files in the vault.
type Downloader struct {
	client *Client
	store  Store
	dryRun bool
}

// NewDownloader returns a Downloader writing through store. In dry-run mode
// it only computes the path a download would land on.
func NewDownloader(client *Client, store Store, dryRun bool) *Downloader {
	return &Downloader{client: client, store: store, dryRun: dryRun}
}

// Download saves ref under dir and returns the file's vault-relative path.
// A file that already exists under the derived name is reused as is.
func (d *Downloader) Download(ctx context.Context, ref ImageRef, dir string) (string, error) {
	rel := path.Join(dir, FilenameFor(ref.URL))
	if d.dryRun || d.store.Exists(rel) {
		return rel, nil
	}
	if err := d.Fetch(ctx, ref.URL, rel); err != nil {
		return "", err
	}
	return rel, nil
}

// Fetch streams rawURL into the vault-relative path rel.
func (d *Downloader) Fetch(ctx context.Context, rawURL, rel string) error {
	if d.dryRun {
		return nil
	}
	resp, err := d.client.open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := d.store.WriteFrom(rel, resp.Body); err != nil {
		return fmt.Errorf("provider: save %s: %w", rel, err)
	}
	return nil
}

// FilenameFor derives the attachment filename for an image URL from the
// basename of its path.
func FilenameFor(rawURL string) string {
	base := path.Base(rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		base = path.Base(u.Path)
	}
	name := SanitizeFilename(base)
	if !hasImageExtension(name) {
		name += ".jpg"
	}
	return name
}

// SanitizeFilename turns whitespace runs into '_', strips everything
// outside [A-Za-z0-9._-] and truncates to 120 bytes. It is idempotent.
func SanitizeFilename(name string) string {
	name = sanitizeName(name)
	if name == "" {
		return "image"
	}
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	return name
}

func sanitizeName(name string) string {
	name = whitespaceRe.ReplaceAllString(name, "_")
	return unsafeFilename.ReplaceAllString(name, "")
}

func hasImageExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
