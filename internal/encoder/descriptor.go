package encoder

import (
	"context"
	"encoding/json"
	"fmt"
)

// BackendDescriptor identifies the classical 128-dimensional descriptor
// backend, paired with Euclidean distance matching.
const BackendDescriptor = "descriptor"

// DescriptorClient talks to the descriptor encoding service, which returns a
// ready-to-use fixed-length descriptor per detected face.
type DescriptorClient struct {
	serviceClient
	dim int
}

// NewDescriptorClient creates a descriptor backend client.
func NewDescriptorClient(baseURL string, dim int, minConfidence float64) *DescriptorClient {
	return &DescriptorClient{
		serviceClient: newServiceClient(baseURL, minConfidence),
		dim:           dim,
	}
}

func (c *DescriptorClient) Backend() string { return BackendDescriptor }

func (c *DescriptorClient) Dim() int { return c.dim }

// descriptorResponse represents the response from the descriptor service.
type descriptorResponse struct {
	Faces []struct {
		BBox       []float64 `json:"bbox"`
		DetScore   float64   `json:"det_score"`
		Descriptor []float32 `json:"descriptor"`
	} `json:"faces"`
}

func (c *DescriptorClient) EncodeAll(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/encode/descriptor", imageData)
	if err != nil {
		return nil, err
	}

	var resp descriptorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor response: %w", err)
	}

	faces := make([]Face, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.Descriptor) != c.dim {
			return nil, fmt.Errorf("descriptor service returned %d dimensions, expected %d", len(f.Descriptor), c.dim)
		}
		faces = append(faces, Face{
			BBox:      f.BBox,
			DetScore:  f.DetScore,
			Embedding: f.Descriptor,
		})
	}
	return faces, nil
}

func (c *DescriptorClient) EncodeSingle(ctx context.Context, imageData []byte) ([]float32, error) {
	faces, err := c.EncodeAll(ctx, imageData)
	if err != nil {
		return nil, err
	}
	return single(faces)
}
