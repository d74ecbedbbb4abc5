package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caslastudio/internal/catalog"
	"caslastudio/internal/http/handlers"
	"caslastudio/internal/imagegen"
	"caslastudio/internal/studio"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n-png-body")
	jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
)

type fixture struct {
	server   *httptest.Server
	upstream *httptest.Server
	calls    atomic.Int32
	fail     atomic.Bool
	registry *studio.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid API key"}`)
			return
		}
		if f.fail.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"detail":"Failed to generate image."}`)
			return
		}
		switch r.URL.Path {
		case "/text2img":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		case "/img2img":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(jpegBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.upstream.Close)

	logger := zerolog.Nop()
	client := imagegen.NewClient(imagegen.Options{BaseURL: f.upstream.URL, Timeout: 5 * time.Second})
	f.registry = studio.NewRegistry(client, studio.NewBuilder("test-token"), nil, logger)
	products, err := catalog.New(nil, time.Minute, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = products.Close() })

	app := handlers.NewApp(f.registry, products, logger, 1<<20)
	f.server = httptest.NewServer(NewRouter(app, Options{
		AllowedOrigins:  []string{"http://localhost:3000"},
		DefaultLocale:   "vi",
		SubmitPerMinute: 100,
		Logger:          logger,
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) jsonCall(t *testing.T, method, path string, payload any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	resp := f.do(t, method, path, body, "application/json", headers...)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	resp, body := f.jsonCall(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func (f *fixture) uploadImage(t *testing.T, id string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "kitchen.jpg")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return f.do(t, http.MethodPut, "/v1/sessions/"+id+"/image", &buf, mw.FormDataContentType())
}

func TestHealthAndCatalog(t *testing.T) {
	f := newFixture(t)

	resp, body := f.jsonCall(t, http.MethodGet, "/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = f.jsonCall(t, http.MethodGet, "/v1/catalog", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	products := body["products"].([]any)
	require.Len(t, products, 26)
	first := products[0].(map[string]any)
	assert.Equal(t, "C1012 Glacier White", first["code"])
	assert.Equal(t, "C1012", first["sku"])

	resp = f.do(t, http.MethodGet, "/v1/openapi.json", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Contains(t, doc.Paths, "/v1/sessions/{id}/submit")
	assert.Contains(t, doc.Paths, "/v1/sessions/{id}/bundle")

	resp = f.do(t, http.MethodGet, "/v1/docs", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Casla Quartz Studio API")
	assert.Contains(t, string(page), `spec-url="/v1/openapi.json"`)
}

func TestNewSessionDefaults(t *testing.T) {
	f := newFixture(t)
	resp, body := f.jsonCall(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "text2img", body["mode"])
	assert.Equal(t, "1024x768", body["size_choice"])
	assert.Equal(t, "idle", body["status"])
	assert.Equal(t, []any{}, body["product_codes"])
	assert.Nil(t, body["result"])
	assert.Nil(t, body["error"])
}

func TestTextToImageFlow(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	resp, body := f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{"prompt": "modern kitchen counter"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "modern kitchen counter", body["prompt"])

	resp, body = f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/products", map[string]any{"code": "C1012 Glacier White"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["in_catalog"])

	resp, body = f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "succeeded", body["status"])
	result := body["result"].(map[string]any)
	assert.Equal(t, "image/png", result["content_type"])

	resp = f.do(t, http.MethodGet, result["url"].(string), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, pngBytes, data)

	resp = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/result", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename=generated_image.png`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestSubmitValidationErrorsAreLocalized(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	resp, body := f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "missing_text_fields", body["error"])
	assert.Equal(t, "Vui lòng nhập mô tả và chọn ít nhất một sản phẩm.", body["message"])

	resp, body = f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{"mode": "img2img", "position": "countertop"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit", nil, "Accept-Language", "en-US")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "missing_image_fields", body["error"])
	assert.Equal(t, "Please upload an image, enter a position and select one product.", body["message"])
	assert.Zero(t, f.calls.Load(), "no request may reach the service")

	_, body = f.jsonCall(t, http.MethodGet, "/v1/sessions/"+id, nil, "X-Locale", "en")
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "missing_image_fields", errBody["error"])
	assert.Equal(t, "idle", body["status"])
}

func TestImageToImageFlow(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/products", map[string]any{"code": "C1026 Polar"})
	f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/products", map[string]any{"code": "C4345 Oro"})
	resp, body := f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{
		"mode":        "img2img",
		"position":    "countertop",
		"size_choice": "Custom size",
		"custom_size": "1280x720",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"C1026 Polar"}, body["product_codes"])

	resp = f.uploadImage(t, id, jpegBytes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	img := view["image"].(map[string]any)
	assert.Equal(t, "kitchen.jpg", img["filename"])
	assert.Equal(t, "image/jpeg", img["content_type"])
	assert.NotEmpty(t, img["preview_url"])

	resp, body = f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit?wait=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "succeeded", body["status"])

	resp = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/result", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename=generated_image.jpg`, resp.Header.Get("Content-Disposition"))

	resp = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/bundle", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	var names []string
	for _, file := range zr.File {
		names = append(names, file.Name)
	}
	assert.Equal(t, []string{"generated_image.jpg", "source.jpg", "selections.json"}, names)
}

func TestServiceFailureKeepsPreviousResult(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{"prompt": "bathroom vanity"})
	f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/products", map[string]any{"code": "C4221 Athena"})

	_, body := f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit?wait=true", nil)
	firstURL := body["result"].(map[string]any)["url"]

	f.fail.Store(true)
	resp, body := f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit?wait=true", nil, "X-Locale", "vi")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, firstURL, body["result"].(map[string]any)["url"])
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "service_rejected", errBody["error"])
	assert.Equal(t, "Lỗi khi tạo ảnh: Failed to generate image.", errBody["message"])
}

func TestAsyncSubmitAndInFlightGuard(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{"prompt": "island"})
	f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/products", map[string]any{"code": "C4202 Calacatta Gold"})

	sess, ok := f.registry.Get(id)
	require.True(t, ok)

	resp, body := f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	if body["status"] == "in_flight" {
		resp, body = f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit", nil, "X-Locale", "en")
		if resp.StatusCode == http.StatusConflict {
			assert.Equal(t, "already_in_flight", body["error"])
		}
	}

	if pending := sess.Pending(); pending != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = pending.Wait(ctx)
	}
	require.Eventually(t, func() bool { return sess.Snapshot().Status == studio.StatusSucceeded }, 5*time.Second, 10*time.Millisecond)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	resp, body := f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{"mode": "video"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])

	resp, _ = f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{"size_choice": "800x600"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/products", map[string]any{"code": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/products", map[string]any{"code": "Z9999 Unknown"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["in_catalog"])

	resp = f.uploadImage(t, id, []byte("plain text, not an image"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = f.uploadImage(t, id, bytes.Repeat([]byte{0xff}, (1<<20)+4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, body = f.jsonCall(t, http.MethodGet, "/v1/sessions/"+id+"/result", nil, "X-Locale", "en")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no_result", body["error"])

	resp, body = f.jsonCall(t, http.MethodGet, "/v1/sessions/00000000-0000-0000-0000-000000000000", nil, "X-Locale", "en")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Session not found.", body["message"])

	resp = f.do(t, http.MethodGet, "/v1/blobs/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteSessionReleasesImages(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	f.jsonCall(t, http.MethodPatch, "/v1/sessions/"+id, map[string]any{"prompt": "floor"})
	f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/products", map[string]any{"code": "C1026 Polar"})
	_, body := f.jsonCall(t, http.MethodPost, "/v1/sessions/"+id+"/submit?wait=true", nil)
	url := body["result"].(map[string]any)["url"].(string)

	resp := f.do(t, http.MethodDelete, "/v1/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, url, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/v1/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
