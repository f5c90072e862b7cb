package embedding

import (
	"context"
	"errors"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
)

type retryProvider struct {
	next   EmbeddingProvider
	logger logger.ILogger
}

// WithRetry retries a failed call once. Errors that survive the retry are
// returned as provider errors.
func WithRetry(next EmbeddingProvider, log logger.ILogger) EmbeddingProvider {
	return &retryProvider{next: next, logger: log}
}

func (r *retryProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	resp, err := r.next.Generate(ctx, text, taskType)
	if err == nil || !shouldRetry(ctx, err) {
		return resp, wrapProviderErr(err)
	}

	r.logger.Warn("EMBEDDING", "Embedding call failed, retrying once", map[string]interface{}{
		"error": err.Error(),
	})
	resp, err = r.next.Generate(ctx, text, taskType)
	return resp, wrapProviderErr(err)
}

func (r *retryProvider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	vectors, err := r.next.GenerateBatch(ctx, texts, taskType)
	if err == nil || !shouldRetry(ctx, err) {
		return vectors, wrapProviderErr(err)
	}

	r.logger.Warn("EMBEDDING", "Batch embedding call failed, retrying once", map[string]interface{}{
		"error": err.Error(),
		"batch": len(texts),
	})
	vectors, err = r.next.GenerateBatch(ctx, texts, taskType)
	return vectors, wrapProviderErr(err)
}

func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !apperror.IsKind(err, apperror.KindConfiguration)
}

func wrapProviderErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Provider("embedding", err)
}
