package adapters

import (
	"context"
	"fmt"
	"time"
)

// Adapter is the uniform capability interface over heterogeneous backends.
// An adapter that cannot support a capability must return an AdapterError
// with KindUnsupported rather than silently no-op; the execution engine
// records that as a fatal, non-retryable run failure.
type Adapter interface {
	TestConnection(ctx context.Context) (*ConnectionStatus, error)
	GetSchema(ctx context.Context) (*Schema, error)
	ExecuteQuery(ctx context.Context, sql string, params map[string]any) (*QueryResult, error)
	PreviewTable(ctx context.Context, name string) (*QueryResult, error)
	Disconnect() error
}

type ConnectionStatus struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Schema struct {
	Tables        []Table   `json:"tables"`
	LastRefreshed time.Time `json:"lastRefreshed"`
}

type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Error kinds. Transient failures are retryable by the caller; the other
// two are fatal for the run that hit them.
const (
	KindTransient   = "transient"
	KindPermission  = "permission"
	KindUnsupported = "unsupported_operation"
)

// AdapterError is the typed failure every adapter call resolves into.
type AdapterError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AdapterError) Unwrap() error { return e.Cause }

func NewTransient(msg string, cause error) *AdapterError {
	return &AdapterError{Kind: KindTransient, Message: msg, Cause: cause}
}

func NewPermission(msg string, cause error) *AdapterError {
	return &AdapterError{Kind: KindPermission, Message: msg, Cause: cause}
}

func NewUnsupported(capability, sourceType string) *AdapterError {
	return &AdapterError{
		Kind:    KindUnsupported,
		Message: fmt.Sprintf("%s is not supported by %s sources", capability, sourceType),
	}
}
