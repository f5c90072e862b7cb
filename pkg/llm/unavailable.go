package llm

import "context"

// Unavailable stands in for a provider that could not be configured. Every
// call returns Err, so callers surface a configuration error instead of the
// process failing at startup.
type Unavailable struct {
	Err error
}

var _ LLMProvider = Unavailable{}

func (u Unavailable) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	return "", u.Err
}

func (u Unavailable) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return "", u.Err
}

func (u Unavailable) ChatStream(ctx context.Context, history []Message, onToken TokenHandler, options ...Option) error {
	return u.Err
}
