package encoder

import "fmt"

// New constructs the encoder backend selected by configuration.
func New(backend, baseURL string, dim int, minConfidence float64) (Encoder, error) {
	switch backend {
	case BackendDescriptor:
		return NewDescriptorClient(baseURL, dim, minConfidence), nil
	case BackendMesh:
		return NewMeshClient(baseURL, dim, minConfidence), nil
	}
	return nil, fmt.Errorf("unknown encoder backend %q", backend)
}
