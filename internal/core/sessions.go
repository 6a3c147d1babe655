package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"symptom-insights/internal/llm"
	"symptom-insights/internal/observability"
)

const (
	// DefaultMaxRetries is the number of status checks made per run.
	DefaultMaxRetries = 10
	// DefaultPollInterval is the pause between status checks.
	DefaultPollInterval = 2 * time.Second

	recentMessageLimit = 5
)

// ReplyRequest is one prompt addressed to a hosted assistant.
type ReplyRequest struct {
	Prompt         string
	AssistantID    string
	Instructions   string
	VectorStoreIDs []string
}

// SessionSnapshot describes the cached thread of one assistant id.
type SessionSnapshot struct {
	AssistantID string    `json:"assistant_id"`
	ThreadID    string    `json:"thread_id"`
	LastRunID   string    `json:"last_run_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// assistantSession is the cached thread for one assistant id.  mu is held
// for the whole of a request so runs for the same assistant never interleave
// on a thread.
type assistantSession struct {
	mu        sync.Mutex
	threadID  string
	runID     string
	createdAt time.Time
}

// SessionManager owns one conversation thread per assistant id.  A thread is
// reused until a later request observes that its last run completed, at which
// point the next prompt starts a fresh thread.
type SessionManager struct {
	api          llm.Assistant
	log          *logrus.Logger
	metrics      *observability.Metrics
	maxRetries   int
	pollInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*assistantSession
	active   int
}

// SessionOption customises a SessionManager.
type SessionOption func(*SessionManager)

// WithPolling overrides the status-check budget and interval.
func WithPolling(maxRetries int, interval time.Duration) SessionOption {
	return func(m *SessionManager) {
		if maxRetries > 0 {
			m.maxRetries = maxRetries
		}
		if interval >= 0 {
			m.pollInterval = interval
		}
	}
}

// WithLogger sets the logger used for recovered remote failures.
func WithLogger(log *logrus.Logger) SessionOption {
	return func(m *SessionManager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithMetrics records thread and run events.
func WithMetrics(metrics *observability.Metrics) SessionOption {
	return func(m *SessionManager) { m.metrics = metrics }
}

// NewSessionManager constructs a SessionManager over the given assistant API.
func NewSessionManager(api llm.Assistant, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		api:          api,
		log:          observability.DiscardLogger(),
		maxRetries:   DefaultMaxRetries,
		pollInterval: DefaultPollInterval,
		sessions:     make(map[string]*assistantSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reply submits the prompt to the assistant and waits for its answer.  When
// the run does not complete within the polling budget TimeoutReply is
// returned with a nil error, so a nil error does not imply a parseable reply.
func (m *SessionManager) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	if req.AssistantID == "" {
		return "", fmt.Errorf("%w: assistant id is required", ErrMalformedInput)
	}
	sess := m.session(req.AssistantID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	// The caller may have gone away while waiting for the lock.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entry := m.log.WithField("assistant_id", req.AssistantID)
	if err := m.expireCompleted(ctx, sess, entry); err != nil {
		return "", err
	}

	run, err := m.submit(ctx, sess, req, entry)
	if err != nil {
		return "", err
	}
	return m.poll(ctx, run, entry)
}

// ActiveThreads reports how many assistant ids currently hold a thread.
func (m *SessionManager) ActiveThreads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Snapshot lists the cached threads.  Sessions busy with a request are
// left out.
func (m *SessionManager) Snapshot() []SessionSnapshot {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	sessions := make([]*assistantSession, 0, len(m.sessions))
	for id, s := range m.sessions {
		ids = append(ids, id)
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]SessionSnapshot, 0, len(sessions))
	for i, s := range sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.threadID != "" {
			out = append(out, SessionSnapshot{
				AssistantID: ids[i],
				ThreadID:    s.threadID,
				LastRunID:   s.runID,
				CreatedAt:   s.createdAt,
			})
		}
		s.mu.Unlock()
	}
	return out
}

func (m *SessionManager) session(assistantID string) *assistantSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[assistantID]
	if !ok {
		s = &assistantSession{}
		m.sessions[assistantID] = s
	}
	return s
}

// expireCompleted drops the cached thread when its last run has completed
// or when its status cannot be read.  A cancelled or expired ctx keeps the
// thread and is returned.
func (m *SessionManager) expireCompleted(ctx context.Context, sess *assistantSession, entry *logrus.Entry) error {
	if sess.threadID == "" {
		return nil
	}
	status, err := m.api.RunStatus(ctx, sess.threadID, sess.runID)
	switch {
	case err != nil && isContextErr(ctx, err):
		return fmt.Errorf("thread status: %w", err)
	case err != nil:
		entry.WithError(err).WithField("thread_id", sess.threadID).Warn("thread status check failed, starting a new thread")
	case status == llm.RunStatusCompleted:
		entry.WithField("thread_id", sess.threadID).Debug("thread run completed, starting a new thread")
	default:
		return nil
	}
	m.reset(sess)
	m.metrics.ThreadEvent("reset")
	return nil
}

func isContextErr(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *SessionManager) submit(ctx context.Context, sess *assistantSession, req ReplyRequest, entry *logrus.Entry) (llm.Run, error) {
	if sess.threadID == "" {
		run, err := m.api.CreateThreadAndRun(ctx, llm.ThreadRun{
			AssistantID:    req.AssistantID,
			Instructions:   req.Instructions,
			Prompt:         req.Prompt,
			VectorStoreIDs: req.VectorStoreIDs,
		})
		if err != nil {
			return llm.Run{}, fmt.Errorf("%w: create thread: %w", ErrAssistantCall, err)
		}
		sess.threadID = run.ThreadID
		sess.runID = run.RunID
		sess.createdAt = time.Now().UTC()
		m.adjustActive(1)
		m.metrics.ThreadEvent("created")
		entry.WithFields(logrus.Fields{"thread_id": run.ThreadID, "run_id": run.RunID}).Info("created assistant thread")
		return run, nil
	}

	run, err := m.api.CreateRun(ctx, sess.threadID, req.AssistantID, req.Prompt)
	if err != nil {
		return llm.Run{}, fmt.Errorf("%w: create run on thread %s: %w", ErrAssistantCall, sess.threadID, err)
	}
	if run.ThreadID == "" {
		run.ThreadID = sess.threadID
	}
	sess.runID = run.RunID
	m.metrics.ThreadEvent("reused")
	entry.WithFields(logrus.Fields{"thread_id": sess.threadID, "run_id": run.RunID}).Info("reused assistant thread")
	return run, nil
}

// poll checks the run status at most maxRetries times, pausing pollInterval
// after every check that does not find the run completed.
func (m *SessionManager) poll(ctx context.Context, run llm.Run, entry *logrus.Entry) (string, error) {
	started := time.Now()
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		status, err := m.api.RunStatus(ctx, run.ThreadID, run.RunID)
		if err != nil {
			m.metrics.RunFinished("error", attempt, time.Since(started))
			return "", fmt.Errorf("%w: run status: %w", ErrAssistantCall, err)
		}
		if status == llm.RunStatusCompleted {
			messages, err := m.api.LatestMessages(ctx, run.ThreadID, recentMessageLimit)
			if err != nil {
				m.metrics.RunFinished("error", attempt, time.Since(started))
				return "", fmt.Errorf("%w: list messages: %w", ErrAssistantCall, err)
			}
			if len(messages) == 0 {
				m.metrics.RunFinished("error", attempt, time.Since(started))
				return "", fmt.Errorf("%w: thread %s has no messages", ErrAssistantCall, run.ThreadID)
			}
			m.metrics.RunFinished("completed", attempt, time.Since(started))
			return messages[0], nil
		}
		if status.Terminal() {
			m.metrics.RunFinished(string(status), attempt, time.Since(started))
			return "", fmt.Errorf("%w: run %s ended with status %s", ErrRunFailed, run.RunID, status)
		}
		if err := m.wait(ctx); err != nil {
			m.metrics.RunFinished("cancelled", attempt, time.Since(started))
			return "", err
		}
	}
	m.metrics.RunFinished("timeout", m.maxRetries, time.Since(started))
	entry.WithFields(logrus.Fields{"thread_id": run.ThreadID, "run_id": run.RunID, "attempts": m.maxRetries}).Warn("assistant run did not complete in time")
	return TimeoutReply, nil
}

func (m *SessionManager) wait(ctx context.Context) error {
	if m.pollInterval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *SessionManager) reset(sess *assistantSession) {
	if sess.threadID == "" {
		return
	}
	sess.threadID = ""
	sess.runID = ""
	sess.createdAt = time.Time{}
	m.adjustActive(-1)
}

func (m *SessionManager) adjustActive(delta int) {
	m.mu.Lock()
	m.active += delta
	n := m.active
	m.mu.Unlock()
	m.metrics.SetActiveThreads(n)
}

// IsTimeout reports whether reply is the polling timeout sentinel.
func IsTimeout(reply string) bool {
	return reply == TimeoutReply
}
