// Package mock provides an inference.Client for testing.
package mock

import (
	"context"

	"github.com/kanpai-app/kanpai/internal/inference"
)

// Client satisfies inference.Client with injectable behavior.
type Client struct {
	SubmitFunc   func(ctx context.Context, req inference.Request) (*inference.Response, error)
	RetrieveFunc func(ctx context.Context, responseID string) (*inference.Response, error)

	SubmitCalls   []inference.Request
	RetrieveCalls []string
}

func (c *Client) Submit(ctx context.Context, req inference.Request) (*inference.Response, error) {
	c.SubmitCalls = append(c.SubmitCalls, req)
	if c.SubmitFunc != nil {
		return c.SubmitFunc(ctx, req)
	}
	return &inference.Response{ID: "resp_mock", Status: inference.StatusQueued}, nil
}

func (c *Client) Retrieve(ctx context.Context, responseID string) (*inference.Response, error) {
	c.RetrieveCalls = append(c.RetrieveCalls, responseID)
	if c.RetrieveFunc != nil {
		return c.RetrieveFunc(ctx, responseID)
	}
	return &inference.Response{ID: responseID, Status: inference.StatusInProgress}, nil
}

// Compile-time check that Client implements inference.Client.
var _ inference.Client = (*Client)(nil)
