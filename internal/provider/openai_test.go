package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultfill/internal/testutil"
)

func openAIServer(t *testing.T, calls *atomic.Int32, data map[string]string) string {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/v1/images/generations", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "gpt-image-1", body["model"])
		assert.Equal(t, "1024x1024", body["size"])
		img := map[string]string{}
		for k, v := range data {
			img[k] = v
		}
		if img["url"] == "self" {
			img["url"] = "http://" + req.Host + "/files/fox.png"
		}
		writeJSON(w, map[string]any{"created": 1, "data": []map[string]string{img}})
	})
	r.Get("/files/fox.png", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("PNGFROMURL"))
	})
	return newServer(t, r).URL
}

func TestOpenAIImages_WritesBase64Payload(t *testing.T) {
	var calls atomic.Int32
	base := openAIServer(t, &calls, map[string]string{
		"b64_json": base64.StdEncoding.EncodeToString([]byte("PNGDATA")),
	})
	vault, store := testutil.TestVault(t)
	gen := NewOpenAIImages(OpenAIConfig{APIKey: "sk-test", BaseURL: base + "/v1/"}, store,
		NewDownloader(NewClient(), store, false), false)

	rel, err := gen.Generate(context.Background(), "A red fox", "attachments")
	require.NoError(t, err)
	assert.Equal(t, "attachments/A_red_fox.png", rel)
	assert.Equal(t, "PNGDATA", testutil.ReadNote(t, vault, rel))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIImages_DownloadsURLPayload(t *testing.T) {
	var calls atomic.Int32
	base := openAIServer(t, &calls, map[string]string{"url": "self"})
	vault, store := testutil.TestVault(t)
	gen := NewOpenAIImages(OpenAIConfig{APIKey: "sk-test", BaseURL: base + "/v1/"}, store,
		NewDownloader(NewClient(), store, false), false)

	rel, err := gen.Generate(context.Background(), "A red fox", "attachments")
	require.NoError(t, err)
	assert.Equal(t, "PNGFROMURL", testutil.ReadNote(t, vault, rel))
}

func TestOpenAIImages_DryRunSkipsAPI(t *testing.T) {
	var calls atomic.Int32
	base := openAIServer(t, &calls, map[string]string{"b64_json": "AAAA"})
	vault, store := testutil.TestVault(t)
	gen := NewOpenAIImages(OpenAIConfig{APIKey: "sk-test", BaseURL: base + "/v1/"}, store,
		NewDownloader(NewClient(), store, true), true)

	rel, err := gen.Generate(context.Background(), "A red fox", "attachments")
	require.NoError(t, err)
	assert.Equal(t, "attachments/A_red_fox.png", rel)
	assert.Zero(t, calls.Load())
	assert.Empty(t, testutil.Files(t, vault))
}

func TestOpenAIImages_MissingKey(t *testing.T) {
	_, store := testutil.TestVault(t)
	gen := NewOpenAIImages(OpenAIConfig{}, store, NewDownloader(NewClient(), store, false), false)

	_, err := gen.Generate(context.Background(), "A red fox", "attachments")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIImages_EmptyPayload(t *testing.T) {
	var calls atomic.Int32
	base := openAIServer(t, &calls, map[string]string{})
	vault, store := testutil.TestVault(t)
	gen := NewOpenAIImages(OpenAIConfig{APIKey: "sk-test", BaseURL: base + "/v1/"}, store,
		NewDownloader(NewClient(), store, false), false)

	_, err := gen.Generate(context.Background(), "A red fox", "attachments")
	assert.Error(t, err)
	assert.Empty(t, testutil.Files(t, vault))
}
