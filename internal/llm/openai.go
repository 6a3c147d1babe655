package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// RunStatus mirrors the lifecycle states of an assistant run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = RunStatus(openai.RunStatusQueued)
	RunStatusInProgress     RunStatus = RunStatus(openai.RunStatusInProgress)
	RunStatusRequiresAction RunStatus = RunStatus(openai.RunStatusRequiresAction)
	RunStatusCompleted      RunStatus = RunStatus(openai.RunStatusCompleted)
	RunStatusFailed         RunStatus = RunStatus(openai.RunStatusFailed)
	RunStatusCancelled      RunStatus = RunStatus(openai.RunStatusCancelled)
	RunStatusExpired        RunStatus = RunStatus(openai.RunStatusExpired)
	RunStatusIncomplete     RunStatus = RunStatus(openai.RunStatusIncomplete)
)

// Terminal reports whether the run can no longer reach completed.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	}
	return false
}

// ThreadRun describes a new thread seeded with one user message and started
// immediately.
type ThreadRun struct {
	AssistantID    string
	Instructions   string
	Prompt         string
	VectorStoreIDs []string
}

// Run identifies a run on a thread.
type Run struct {
	ThreadID string
	RunID    string
	Status   RunStatus
}

// Assistant is the slice of the hosted assistant service the core depends
// on: threads, runs, status polling and recent messages.
type Assistant interface {
	CreateThreadAndRun(ctx context.Context, req ThreadRun) (Run, error)
	CreateRun(ctx context.Context, threadID, assistantID, prompt string) (Run, error)
	RunStatus(ctx context.Context, threadID, runID string) (RunStatus, error)
	// LatestMessages returns the text of up to limit messages, newest first.
	LatestMessages(ctx context.Context, threadID string, limit int) ([]string, error)
}

// OpenAIClient talks to the OpenAI Assistants API (v2).
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient constructs an OpenAI-backed assistant client.  An empty
// baseURL keeps the public API endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

// CreateThreadAndRun creates a thread holding the prompt, attaches the
// vector stores for file search and starts a run with the instructions.
func (c *OpenAIClient) CreateThreadAndRun(ctx context.Context, req ThreadRun) (Run, error) {
	if c.client == nil {
		return Run{}, errors.New("openai client not initialized")
	}
	thread := openai.ThreadRequest{
		Messages: []openai.ThreadMessage{
			{Role: openai.ThreadMessageRoleUser, Content: req.Prompt},
		},
	}
	if len(req.VectorStoreIDs) > 0 {
		thread.ToolResources = &openai.ToolResourcesRequest{
			FileSearch: &openai.FileSearchToolResourcesRequest{VectorStoreIDs: req.VectorStoreIDs},
		}
	}
	run, err := c.client.CreateThreadAndRun(ctx, openai.CreateThreadAndRunRequest{
		RunRequest: openai.RunRequest{
			AssistantID:  req.AssistantID,
			Instructions: req.Instructions,
		},
		Thread: thread,
	})
	if err != nil {
		return Run{}, err
	}
	return Run{ThreadID: run.ThreadID, RunID: run.ID, Status: RunStatus(run.Status)}, nil
}

// CreateRun appends the prompt to an existing thread and starts a new run.
func (c *OpenAIClient) CreateRun(ctx context.Context, threadID, assistantID, prompt string) (Run, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: assistantID,
		AdditionalMessages: []openai.ThreadMessage{
			{Role: openai.ThreadMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Run{}, err
	}
	return Run{ThreadID: run.ThreadID, RunID: run.ID, Status: RunStatus(run.Status)}, nil
}

// RunStatus fetches the current status of a run.
func (c *OpenAIClient) RunStatus(ctx context.Context, threadID, runID string) (RunStatus, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return "", err
	}
	return RunStatus(run.Status), nil
}

// LatestMessages lists the most recent messages on a thread and returns the
// first text part of each.  Messages without text are skipped.
func (c *OpenAIClient) LatestMessages(ctx context.Context, threadID string, limit int) ([]string, error) {
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(list.Messages))
	for _, m := range list.Messages {
		for _, part := range m.Content {
			if part.Text != nil {
				texts = append(texts, part.Text.Value)
				break
			}
		}
	}
	return texts, nil
}
