package encoder

import (
	"context"
	"encoding/json"
	"fmt"
)

// BackendMesh identifies the face-mesh landmark backend, paired with cosine
// similarity matching. The service returns per-face landmark coordinates; the
// client flattens them into the embedding vector.
const BackendMesh = "mesh"

// MeshClient talks to the face-mesh landmark service.
type MeshClient struct {
	serviceClient
	dim int
}

// NewMeshClient creates a mesh backend client.
func NewMeshClient(baseURL string, dim int, minConfidence float64) *MeshClient {
	return &MeshClient{
		serviceClient: newServiceClient(baseURL, minConfidence),
		dim:           dim,
	}
}

func (c *MeshClient) Backend() string { return BackendMesh }

func (c *MeshClient) Dim() int { return c.dim }

// meshResponse represents the response from the mesh service. Landmarks come
// as [x, y, z] triples per mesh point.
type meshResponse struct {
	Faces []struct {
		BBox      []float64   `json:"bbox"`
		DetScore  float64     `json:"det_score"`
		Landmarks [][]float64 `json:"landmarks"`
	} `json:"faces"`
}

// flattenLandmarks turns landmark triples into a fixed-length vector.
func flattenLandmarks(landmarks [][]float64) []float32 {
	vec := make([]float32, 0, len(landmarks)*3)
	for _, p := range landmarks {
		for _, coord := range p {
			vec = append(vec, float32(coord))
		}
	}
	return vec
}

func (c *MeshClient) EncodeAll(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/encode/mesh", imageData)
	if err != nil {
		return nil, err
	}

	var resp meshResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse mesh response: %w", err)
	}

	faces := make([]Face, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		vec := flattenLandmarks(f.Landmarks)
		if len(vec) != c.dim {
			return nil, fmt.Errorf("mesh service returned %d dimensions, expected %d", len(vec), c.dim)
		}
		faces = append(faces, Face{
			BBox:      f.BBox,
			DetScore:  f.DetScore,
			Embedding: vec,
		})
	}
	return faces, nil
}

func (c *MeshClient) EncodeSingle(ctx context.Context, imageData []byte) ([]float32, error) {
	faces, err := c.EncodeAll(ctx, imageData)
	if err != nil {
		return nil, err
	}
	return single(faces)
}
