// Package encoder wraps the face detection/embedding sidecar services.
// Two interchangeable backends implement the same interface: a classical
// 128-dimensional descriptor service and a face-mesh landmark service.
// Both are pure functions of the image bytes plus backend configuration.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrNoFace is returned when the backend detects no face in the frame.
	ErrNoFace = errors.New("no face detected")
	// ErrMultipleFaces is returned by EncodeSingle when more than one face is
	// detected. Registration requires exactly one face.
	ErrMultipleFaces = errors.New("multiple faces detected")
)

// Face is one detected face with its bounding box and embedding vector.
type Face struct {
	BBox      []float64 // [x1, y1, x2, y2] in pixel coordinates
	DetScore  float64
	Embedding []float32
}

// Encoder produces fixed-length embedding vectors from normalized frames.
// Callers never depend on backend-specific vector semantics beyond "comparable
// by the paired matcher metric".
type Encoder interface {
	// Backend returns the version tag persisted alongside every embedding.
	Backend() string
	// Dim returns the embedding dimensionality of this backend.
	Dim() int
	// EncodeSingle encodes exactly one face for registration.
	// Returns ErrNoFace or ErrMultipleFaces on cardinality violations.
	EncodeSingle(ctx context.Context, imageData []byte) ([]float32, error)
	// EncodeAll encodes every detected face independently. The result may be
	// empty when no face is detected.
	EncodeAll(ctx context.Context, imageData []byte) ([]Face, error)
}

// serviceClient posts frames to a detection/embedding HTTP service.
type serviceClient struct {
	baseURL       string
	minConfidence float64
	client        *http.Client
}

func newServiceClient(baseURL string, minConfidence float64) serviceClient {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return serviceClient{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		minConfidence: minConfidence,
		client:        &http.Client{},
	}
}

// postMultipartImage constructs a multipart form with the image data and posts
// it to the given endpoint, returning the raw response body.
func (c *serviceClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.WriteField("min_confidence", strconv.FormatFloat(c.minConfidence, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("failed to write confidence field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("encoder service error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// single reduces an EncodeAll result to the registration cardinality contract.
func single(faces []Face) ([]float32, error) {
	switch len(faces) {
	case 0:
		return nil, ErrNoFace
	case 1:
		return faces[0].Embedding, nil
	default:
		return nil, ErrMultipleFaces
	}
}
