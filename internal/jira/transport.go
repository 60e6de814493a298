package jira

import "context"

// Transport performs single authenticated calls against one backend.
// Paths are relative to the backend's REST API root. Failures should be
// LookupError values; anything else is classified by the Aggregator.
type Transport interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
}

// Backend is one configured issue-tracker instance
type Backend struct {
	// Name is shown as the prefix of rendered errors
	Name      string
	Transport Transport
}

// NewBackend creates a new Backend
func NewBackend(name string, transport Transport) *Backend {
	return &Backend{
		Name:      name,
		Transport: transport,
	}
}
