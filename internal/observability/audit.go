package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventQueryAccepted   AuditEventType = "query.accepted"
	AuditEventQueryRejected   AuditEventType = "query.rejected"
	AuditEventQueryDegraded   AuditEventType = "query.degraded"
	AuditEventQueryFailed     AuditEventType = "query.failed"
	AuditEventComplexityScore AuditEventType = "complexity.score"
	AuditEventEdgesExport     AuditEventType = "edges.export"
	AuditEventWorkflowStart   AuditEventType = "workflow.start"
	AuditEventWorkflowEnd     AuditEventType = "workflow.end"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   AuditEventType `json:"event_type"`
	SessionID   string         `json:"session_id"`
	RequestID   string         `json:"request_id,omitempty"`
	WorkflowID  string         `json:"workflow_id,omitempty"`
	Roots       []string       `json:"roots,omitempty"`
	Strategy    string         `json:"strategy,omitempty"`
	Success     bool           `json:"success"`
	Duration    time.Duration  `json:"duration_ms,omitempty"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// AuditLogger writes audit events as JSON lines. Rejected root words are
// recorded verbatim so malformed or hostile input can be reviewed later.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// NewAuditLogger creates a new audit logger. A nil or disabled config
// yields a logger that drops every event.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil || !config.Enabled {
		return &AuditLogger{}, nil
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &AuditLogger{writer: writer, sessionID: sessionID, enabled: true}, nil
}

// NewWriterAuditLogger returns an enabled logger writing to w.
func NewWriterAuditLogger(w io.Writer, sessionID string) *AuditLogger {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &AuditLogger{writer: w, sessionID: sessionID, enabled: true}
}

// Log writes an audit event. A nil logger is a no-op.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogQueryRejected records root words that failed validation.
func (l *AuditLogger) LogQueryRejected(requestID string, roots []string, depth int, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventQueryRejected,
		RequestID:   requestID,
		Roots:       roots,
		Success:     false,
		Message:     "query rejected",
		Details:     map[string]any{"depth": depth},
		ErrorDetail: err.Error(),
	})
}

// LogQuery records a completed traversal.
func (l *AuditLogger) LogQuery(requestID string, roots []string, strategy string, duration time.Duration, nodes, edges int, degraded bool) {
	eventType := AuditEventQueryAccepted
	if degraded {
		eventType = AuditEventQueryDegraded
	}
	l.Log(&AuditEvent{
		EventType: eventType,
		RequestID: requestID,
		Roots:     roots,
		Strategy:  strategy,
		Success:   !degraded,
		Duration:  duration,
		Message:   fmt.Sprintf("graph with %d nodes, %d edges", nodes, edges),
		Details:   map[string]any{"nodes": nodes, "edges": edges},
	})
}

// LogQueryFailed records a traversal that produced no usable data.
func (l *AuditLogger) LogQueryFailed(requestID string, roots []string, strategy string, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventQueryFailed,
		RequestID:   requestID,
		Roots:       roots,
		Strategy:    strategy,
		Success:     false,
		Message:     "query failed",
		ErrorDetail: err.Error(),
	})
}

// LogComplexity records a scoring request.
func (l *AuditLogger) LogComplexity(requestID string, tokens, unknown int, divisionByZero bool, duration time.Duration) {
	l.Log(&AuditEvent{
		EventType: AuditEventComplexityScore,
		RequestID: requestID,
		Success:   !divisionByZero,
		Duration:  duration,
		Message:   fmt.Sprintf("scored %d tokens", tokens),
		Details:   map[string]any{"tokens": tokens, "unknown": unknown},
	})
}

// LogEdgesExport records a definition-edge export.
func (l *AuditLogger) LogEdgesExport(outputPath string, words, edges int, duration time.Duration) {
	l.Log(&AuditEvent{
		EventType: AuditEventEdgesExport,
		Success:   true,
		Duration:  duration,
		Message:   fmt.Sprintf("exported %d edges from %d words", edges, words),
		Details:   map[string]any{"output_path": outputPath, "words": words, "edges": edges},
	})
}

// LogWorkflowStart logs a workflow start event.
func (l *AuditLogger) LogWorkflowStart(workflowID, workflowType string, roots []string) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowStart,
		WorkflowID: workflowID,
		Roots:      roots,
		Success:    true,
		Message:    fmt.Sprintf("workflow %s started", workflowType),
	})
}

// LogWorkflowEnd logs a workflow completion event.
func (l *AuditLogger) LogWorkflowEnd(workflowID string, success bool, duration time.Duration, err error) {
	event := &AuditEvent{
		EventType:  AuditEventWorkflowEnd,
		WorkflowID: workflowID,
		Success:    success,
		Duration:   duration,
		Message:    "workflow completed",
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if l == nil {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}
