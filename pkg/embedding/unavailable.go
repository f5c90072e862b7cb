package embedding

import "context"

// Unavailable is installed when the configured provider cannot be built.
type Unavailable struct {
	Err error
}

var _ EmbeddingProvider = Unavailable{}

func (u Unavailable) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	return nil, u.Err
}

func (u Unavailable) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	return nil, u.Err
}
