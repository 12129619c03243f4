package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/resilience"
)

// Client routes chat completions to the active provider, trying each stored
// credential once in order. The provider selection is snapshotted when the
// call starts, so a concurrent switch cannot split one request across
// providers. With an executor configured, each credential attempt retries
// transient provider failures before the loop moves to the next key.
type Client struct {
	state      *State
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func NewClient(state *State) *Client {
	return NewClientWithOptions(state, Options{})
}

func NewClientWithOptions(state *State, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		state:      state,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.ResilienceExecutor,
	}
}

func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage, opts ports.ChatOptions) (*domain.Generation, error) {
	snap := c.state.Snapshot()

	model := opts.Model
	if model == "" {
		model = snap.Model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}

	if len(snap.Keys) == 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "chat",
			fmt.Errorf("no api key configured for %s", snap.Provider))
	}

	var lastErr error
	for _, key := range snap.Keys {
		gen, err := c.chatWithKey(ctx, snap, key, model, messages, opts)
		if err == nil {
			gen.Provider = string(snap.Provider)
			return gen, nil
		}

		slog.Warn("provider_key_failed",
			"provider", string(snap.Provider),
			"key_suffix", keySuffix(key),
			"error", err,
		)
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return nil, domain.WrapError(domain.ErrGeneration,
		fmt.Sprintf("all credentials failed for %s", snap.Provider), lastErr)
}

// chatWithKey runs one credential attempt, wrapped by the resilience
// executor when one is configured.
func (c *Client) chatWithKey(
	ctx context.Context,
	snap Snapshot,
	key string,
	model string,
	messages []domain.ChatMessage,
	opts ports.ChatOptions,
) (*domain.Generation, error) {
	call := func(callCtx context.Context) (*domain.Generation, error) {
		if snap.Provider == LocalOllama {
			return c.chatOllama(callCtx, snap.Config, model, messages, opts)
		}
		return c.chatOpenAICompatible(callCtx, snap.Config, key, model, messages, opts)
	}

	if c.executor == nil {
		return call(ctx)
	}

	var gen *domain.Generation
	err := c.executor.Execute(ctx, "llm."+string(snap.Provider), func(callCtx context.Context) error {
		var callErr error
		gen, callErr = call(callCtx)
		return callErr
	}, classifyChatError)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func keySuffix(key string) string {
	if len(key) <= 4 {
		return key
	}
	return "..." + key[len(key)-4:]
}
