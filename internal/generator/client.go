package generator

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/practice-engine/internal/models"
)

// Generator is the contract of the generation and judging collaborator
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (*models.GenerationResult, error)
	Judge(ctx context.Context, in JudgeInput) (*models.JudgeResult, error)
}

// Transport delivers one request and returns the collaborator's raw output
type Transport interface {
	Call(ctx context.Context, req Request) (string, error)
}

// Client implements Generator over a Transport with a per-attempt
// timeout and bounded retry
type Client struct {
	transport Transport
	timeout   time.Duration
	retry     RetryConfig
}

// NewClient creates a generator client. A zero timeout disables the
// per-attempt deadline.
func NewClient(transport Transport, timeout time.Duration, retry RetryConfig) *Client {
	return &Client{transport: transport, timeout: timeout, retry: retry}
}

// Generate requests a full or module-scoped generation result
func (c *Client) Generate(ctx context.Context, in GenerateInput) (*models.GenerationResult, error) {
	req := Request{
		Task:    TaskGenerate,
		Query:   in.Query,
		Feature: BuildFeature(in.Language, in.Mode, in.Module, in.Answer),
		Module:  in.Module,
	}

	var result *models.GenerationResult
	err := c.do(ctx, req, func(output string) error {
		var err error
		result, err = decodeGeneration(output)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Judge evaluates a submitted answer
func (c *Client) Judge(ctx context.Context, in JudgeInput) (*models.JudgeResult, error) {
	req := Request{
		Task:    TaskJudge,
		Query:   JudgeQuery(in.Title, in.Language, in.Answer),
		Feature: BuildFeature(in.Language, in.Mode, "", in.Answer),
	}

	var result *models.JudgeResult
	err := c.do(ctx, req, func(output string) error {
		var err error
		result, err = decodeJudge(output)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, req Request, decode func(string) error) error {
	start := time.Now()
	err := WithRetry(ctx, c.retry, isRetryable, func() error {
		attemptCtx, cancel := c.attemptContext(ctx)
		defer cancel()

		output, err := c.transport.Call(attemptCtx, req)
		if err != nil {
			return classify(attemptCtx, ErrUpstream, err)
		}
		return decode(output)
	})
	if err != nil {
		slog.Error("generator call failed", "task", req.Task, "module", req.Module, "duration", time.Since(start), "error", err)
		return err
	}

	slog.Info("generator call completed", "task", req.Task, "module", req.Module, "duration", time.Since(start))
	return nil
}

func (c *Client) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
