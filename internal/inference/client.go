// Package inference defines the client surface for the external LLM
// inference service. Jobs are submitted in background mode and polled by
// response id until they reach a terminal status.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Statuses reported by the external service.
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// ErrNoOutputText is returned when a completed response carries no
// extractable text in either the convenience field or the output items.
var ErrNoOutputText = errors.New("response does not contain output text")

// Client is the interface for the external inference service.
type Client interface {
	// Submit creates a new background inference request.
	Submit(ctx context.Context, req Request) (*Response, error)
	// Retrieve fetches the current state of a request by its response id.
	Retrieve(ctx context.Context, responseID string) (*Response, error)
}

// Request describes one schema-constrained inference submission.
type Request struct {
	Model           string
	Instructions    string
	Input           string
	Metadata        map[string]string
	MaxOutputTokens int
	Background      bool
	SchemaName      string
	Schema          json.RawMessage
}

// Response is the external service's view of a request.
type Response struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	Model             string             `json:"model"`
	OutputText        string             `json:"output_text"`
	Output            []OutputItem       `json:"output"`
	Error             *ResponseError     `json:"error"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details"`
}

// OutputItem is one entry of the response's output list.
type OutputItem struct {
	Type    string         `json:"type"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one content segment inside a message output item.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type IncompleteDetails struct {
	Reason string `json:"reason"`
}

// FirstOutputText extracts the response's text output. The service may place
// it either in the top-level convenience field or nested inside message
// output items; the convenience field wins when non-empty, otherwise the
// first output_text block of a message item is used.
func (r *Response) FirstOutputText() (string, error) {
	if strings.TrimSpace(r.OutputText) != "" {
		return r.OutputText, nil
	}
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" {
				return content.Text, nil
			}
		}
	}
	return "", ErrNoOutputText
}

// FailureReason returns the most specific failure description the service
// provided, falling back to a generic string.
func (r *Response) FailureReason() string {
	if r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	if r.IncompleteDetails != nil && r.IncompleteDetails.Reason != "" {
		return r.IncompleteDetails.Reason
	}
	return "inference job failed"
}

// Terminal reports whether the external status can no longer change.
func (r *Response) Terminal() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
