package llm

import (
	"context"
	"errors"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
)

type retryProvider struct {
	next   LLMProvider
	logger logger.ILogger
}

// WithRetry retries non-streaming calls once. Streams are passed through
// untouched: once tokens reach a client they cannot be taken back.
func WithRetry(next LLMProvider, log logger.ILogger) LLMProvider {
	return &retryProvider{next: next, logger: log}
}

func (r *retryProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	out, err := r.next.Chat(ctx, history, options...)
	if err == nil || !retryable(ctx, err) {
		return out, asProviderErr(err)
	}

	r.logger.Warn("LLM", "Chat call failed, retrying once", map[string]interface{}{
		"error": err.Error(),
	})
	out, err = r.next.Chat(ctx, history, options...)
	return out, asProviderErr(err)
}

func (r *retryProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	out, err := r.next.Generate(ctx, prompt, options...)
	if err == nil || !retryable(ctx, err) {
		return out, asProviderErr(err)
	}

	r.logger.Warn("LLM", "Generate call failed, retrying once", map[string]interface{}{
		"error": err.Error(),
	})
	out, err = r.next.Generate(ctx, prompt, options...)
	return out, asProviderErr(err)
}

func (r *retryProvider) ChatStream(ctx context.Context, history []Message, onToken TokenHandler, options ...Option) error {
	return r.next.ChatStream(ctx, history, onToken, options...)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !apperror.IsKind(err, apperror.KindConfiguration)
}

func asProviderErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Provider("llm", err)
}
