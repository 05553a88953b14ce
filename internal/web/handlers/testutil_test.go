package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fahry-ali/hadirku-deploy/internal/attendance"
	"github.com/fahry-ali/hadirku-deploy/internal/blob"
	"github.com/fahry-ali/hadirku-deploy/internal/database/mock"
	"github.com/fahry-ali/hadirku-deploy/internal/encoder"
	"github.com/fahry-ali/hadirku-deploy/internal/matcher"
	"github.com/fahry-ali/hadirku-deploy/internal/web/middleware"
)

// stubEncoder returns a fixed face list for every frame.
type stubEncoder struct {
	faces []encoder.Face
	err   error
}

func (s *stubEncoder) Backend() string { return "descriptor" }
func (s *stubEncoder) Dim() int        { return 2 }

func (s *stubEncoder) EncodeAll(ctx context.Context, imageData []byte) ([]encoder.Face, error) {
	return s.faces, s.err
}

func (s *stubEncoder) EncodeSingle(ctx context.Context, imageData []byte) ([]float32, error) {
	switch len(s.faces) {
	case 0:
		return nil, encoder.ErrNoFace
	case 1:
		return s.faces[0].Embedding, nil
	default:
		return nil, encoder.ErrMultipleFaces
	}
}

// testEnv bundles a controller over mocks for handler tests.
type testEnv struct {
	controller *attendance.Controller
	embeddings *mock.MockEmbeddingStore
	records    *mock.MockAttendanceStore
	courses    *mock.MockCourseReader
}

func newTestEnv(t *testing.T, enc encoder.Encoder) *testEnv {
	t.Helper()
	env := &testEnv{
		embeddings: mock.NewMockEmbeddingStore(),
		records:    mock.NewMockAttendanceStore(),
		courses:    &mock.MockCourseReader{},
	}
	env.controller = attendance.NewController(attendance.Options{
		Encoder:    enc,
		Metric:     matcher.MetricEuclidean,
		Cutoff:     0.5,
		Embeddings: env.embeddings,
		Records:    env.records,
		Proofs:     blob.NewMemory(),
		MaxWidth:   640,
		Timeout:    time.Second,
	})
	return env
}

// testFrame returns a small valid JPEG.
func testFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart request with an image part and extra
// form fields.
func multipartRequest(t *testing.T, path string, frame []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if frame != nil {
		part, err := mw.CreateFormFile("image", "frame.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(frame)); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// withIdentity injects the resolved identity the auth middleware would set.
func withIdentity(r *http.Request, id middleware.Identity) *http.Request {
	return r.WithContext(middleware.SetIdentityInContext(r.Context(), id))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertRejectionReason checks a structured rejection body
func assertRejectionReason(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["reason"] != expected {
		t.Errorf("expected reason '%s', got '%s'", expected, result["reason"])
	}
	if result["error"] == "" {
		t.Error("expected a human readable error message")
	}
}
