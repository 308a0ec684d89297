package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
)

const systemPrompt = "You are a precise code review assistant. You always answer with a single JSON object and nothing else."

// chatEnvelope mirrors the outer OpenAI-style response fields the invoker consumes.
type chatEnvelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// reviewContent is the inner JSON document embedded in the chat envelope.
type reviewContent struct {
	Success  *bool                `json:"success"`
	Summary  string               `json:"summary"`
	Comments []core.ReviewComment `json:"comments"`
	Error    string               `json:"error"`
}

// Invoker drives one review invocation end to end: build the prompt, call the
// backend, classify the response. It implements core.Invoker.
type Invoker struct {
	client  Client
	prompts *PromptManager
	cfg     config.ReviewConfig
	logger  *slog.Logger
}

func NewInvoker(client Client, prompts *PromptManager, cfg config.ReviewConfig, logger *slog.Logger) *Invoker {
	return &Invoker{
		client:  client,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger,
	}
}

// Invoke never returns a Go error; every failure mode is folded into the
// result's status tag so the consumer's ack-vs-retry decision stays a pure
// function of the tag.
func (inv *Invoker) Invoke(ctx context.Context, task *core.ReviewTask) core.ReviewResult {
	if len(task.FilesToReview) == 0 {
		inv.logger.WarnContext(ctx, "task carries no files, degrading to a general review",
			"event_id", task.EventID,
			"repo", task.Repo.FullName)
	}

	prompt, err := inv.buildPrompt(task)
	if err != nil {
		return core.TerminalResult(core.OutcomeFailed, fmt.Errorf("building review prompt: %w", err), nil)
	}

	req := &ChatRequest{
		Model: inv.cfg.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    inv.cfg.Temperature,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	res, err := inv.client.ChatCompletion(ctx, req)
	if err != nil {
		return core.RetryableResult(fmt.Errorf("review backend unreachable: %w", err), nil)
	}

	result := classifyResponse(res)
	if result.Err != nil {
		inv.logger.WarnContext(ctx, "review invocation failed",
			"event_id", task.EventID,
			"status", result.Status,
			"error", result.Err)
	}
	return result
}

// reviewPromptData feeds the code_review template.
type reviewPromptData struct {
	RepoFullName string
	Number       int
	TargetKind   string
	Title        string
	Files        []core.ReviewFile
	Instructions []string
	Detailed     bool
}

func (inv *Invoker) buildPrompt(task *core.ReviewTask) (string, error) {
	data := reviewPromptData{
		RepoFullName: task.Repo.FullName,
		Number:       task.TargetNumber(),
		Files:        task.FilesToReview,
		Instructions: task.Instructions,
		Detailed:     task.ReviewType != core.ReviewGeneral,
	}

	switch {
	case task.PullRequest != nil:
		data.TargetKind = "pull request"
		data.Title = task.PullRequest.Title
	case task.MergeRequest != nil:
		data.TargetKind = "merge request"
		data.Title = task.MergeRequest.Title
	default:
		data.TargetKind = "change"
	}

	return inv.prompts.Render(CodeReviewPrompt, ModelProvider(inv.cfg.Model), data)
}

// classifyResponse sorts one backend response into the ok, retryable and
// terminal buckets. Status 5xx is worth retrying; 4xx is a well-formed
// rejection that redelivery cannot fix. On 2xx the outer envelope being
// unparsable is treated as transient, while garbage inside a well-formed
// envelope is the backend's fault and never assumed transient.
func classifyResponse(res *ChatResult) core.ReviewResult {
	switch {
	case res.StatusCode >= 500:
		return core.RetryableResult(fmt.Errorf("review backend returned status %d", res.StatusCode), res.Body)
	case res.StatusCode >= 400:
		return core.TerminalResult(core.OutcomeErrorCallingLLM,
			fmt.Errorf("review backend rejected the call with status %d", res.StatusCode), res.Body)
	}

	var envelope chatEnvelope
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return core.RetryableResult(fmt.Errorf("unparsable response envelope: %w", err), res.Body)
	}

	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		return core.TerminalResult(core.OutcomeFailed,
			errors.New("response envelope carries no review content"), res.Body)
	}

	var review reviewContent
	content := stripJSONFence(envelope.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &review); err != nil {
		return core.TerminalResult(core.OutcomeFailed,
			fmt.Errorf("review content is not valid JSON: %w", err), res.Body)
	}
	if review.Success == nil {
		return core.TerminalResult(core.OutcomeFailed,
			errors.New("review content lacks the success flag"), res.Body)
	}
	if !*review.Success {
		reason := review.Error
		if reason == "" {
			reason = "review backend reported failure"
		}
		return core.TerminalResult(core.OutcomeFailed, errors.New(reason), res.Body)
	}

	return core.OKResult(review.Summary, review.Comments, res.Body)
}
