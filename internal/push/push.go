// Package push fans one logical notification out to many recipient tokens.
package push

import (
	"context"
	"errors"
	"net/http"
)

// ErrUnavailable marks a call-level failure: nothing was delivered and the
// caller should treat the item as not sent.
var ErrUnavailable = errors.New("push gateway unavailable")

// Message is one logical push addressed to a batch of recipient tokens.
type Message struct {
	Title  string
	Body   string
	Data   map[string]string
	Tokens []string
}

// Payload is the JSON document delivered to each recipient.
type Payload struct {
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// Notification is the visible part of a payload.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendResult is the outcome for a single recipient.
type SendResult struct {
	Token      string
	StatusCode int
	Err        error
}

// Delivered reports whether the push service accepted the message.
func (r SendResult) Delivered() bool {
	return r.Err == nil
}

// Expired reports whether the push service says the token is gone for good.
func (r SendResult) Expired() bool {
	return r.StatusCode == http.StatusGone || r.StatusCode == http.StatusNotFound
}

// BatchResponse aggregates per-recipient outcomes of one Send call.
type BatchResponse struct {
	SuccessCount int
	FailureCount int
	Responses    []SendResult
}

// ExpiredTokens lists recipients that should be removed from the token set.
func (b *BatchResponse) ExpiredTokens() []string {
	if b == nil {
		return nil
	}
	var out []string
	for _, r := range b.Responses {
		if r.Expired() {
			out = append(out, r.Token)
		}
	}
	return out
}

// Gateway delivers one message to all of its tokens in a single call.
// A non-nil error is a call-level failure; per-recipient failures are
// reported in the BatchResponse only.
type Gateway interface {
	Send(ctx context.Context, msg Message) (*BatchResponse, error)
}
