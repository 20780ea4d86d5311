package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/jackzampolin/pagescan/internal/providers"
	"github.com/jackzampolin/pagescan/internal/source"
)

// Executor issues one extraction request per page unit, sequentially,
// in ascending index order. There is no cross-page state: each page is
// classified independently and the result slice always matches the
// unit slice in length and order.
type Executor struct {
	Client  providers.VisionClient
	Limiter *providers.RateLimiter
	Logger  *slog.Logger
}

// NewExecutor creates an executor paced to the client's rate limit.
func NewExecutor(client providers.VisionClient, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		Client:  client,
		Limiter: providers.NewRateLimiter(int(client.RequestsPerMinute())),
		Logger:  logger,
	}
}

// Run executes the ordered page units and returns one PageResult per
// unit. Auth failures abort the run with a FatalError. A rate-limit
// failure stops submission; completed results are preserved and the
// remaining pages are recorded as rate limited.
func (e *Executor) Run(ctx context.Context, units []source.PageUnit, mode Mode, prompt string, opts Options) ([]PageResult, error) {
	results := make([]PageResult, 0, len(units))

	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if unit.Err != nil {
			results = append(results, Failed(unit.Index, unit.Label, KindRasterization, unit.Err.Error()))
			continue
		}

		req := BuildRequest(unit, mode, prompt, opts)
		req.Completion.RequestID = uuid.New().String()

		if err := e.Limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		completion, err := e.complete(ctx, &req.Completion)
		elapsed := time.Since(start)

		if err != nil {
			var apiErr *providers.APIError
			switch {
			case errors.As(err, &apiErr) && apiErr.IsAuth():
				// Every subsequent page would fail identically.
				return nil, &FatalError{Kind: KindAuth, Err: apiErr}
			case errors.As(err, &apiErr) && apiErr.IsRateLimited():
				e.Limiter.Record429()
				e.Logger.Warn("rate limited, aborting remaining pages",
					"page", unit.Index, "remaining", len(units)-i-1)
				results = append(results, Failed(unit.Index, unit.Label, KindRateLimited, apiErr.Message))
				for _, rest := range units[i+1:] {
					results = append(results, Failed(rest.Index, rest.Label, KindRateLimited,
						fmt.Sprintf("run aborted after rate limit on page %d", unit.Index)))
				}
				return results, nil
			default:
				e.Logger.Warn("page extraction failed", "page", unit.Index, "error", err)
				results = append(results, Failed(unit.Index, unit.Label, KindTransient, err.Error()))
				continue
			}
		}

		e.Logger.Info("page extracted",
			"page", unit.Index,
			"elapsed", elapsed,
			"prompt_tokens", completion.PromptTokens,
			"completion_tokens", completion.CompletionTokens,
			"total_tokens", completion.TotalTokens)

		results = append(results, PageResult{
			Index:       unit.Index,
			Label:       unit.Label,
			Success:     true,
			Text:        completion.Content,
			Duration:    elapsed,
			TotalTokens: completion.TotalTokens,
		})
	}

	return results, nil
}

// complete calls the provider with bounded retries for transient
// failures. Auth, quota, and oversized-payload errors are never
// retried: the identical request would fail identically.
func (e *Executor) complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResult, error) {
	return retry.DoWithData(
		func() (*providers.CompletionResult, error) {
			return e.Client.Complete(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(uint(e.Client.MaxRetries())),
		retry.Delay(e.Client.RetryDelayBase()),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *providers.APIError
			if errors.As(err, &apiErr) {
				return !apiErr.IsAuth() && !apiErr.IsRateLimited() && !apiErr.IsPayloadTooLarge()
			}
			return true
		}),
	)
}
