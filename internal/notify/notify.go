// Package notify posts pipeline events to a configured webhook. Delivery
// is best effort: failures are logged and swallowed so a dead endpoint
// can never fail or block a job.
package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/logger"
)

// Event names sent to the webhook.
const (
	EventRequestApproved  = "request.approved"
	EventRequestAvailable = "request.available"
	EventRequestFailed    = "request.failed"
	EventDownloadStarted  = "download.started"
	EventDownloadComplete = "download.complete"
)

// Payload is the webhook body.
type Payload struct {
	Event     string    `json:"event"`
	RequestID int64     `json:"request_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher sends events. A nil Dispatcher and an empty URL both mean
// notifications are off; Send stays safe to call either way.
type Dispatcher struct {
	http *resty.Client
	url  string
}

// New builds a dispatcher for the webhook URL; empty disables it.
func New(webhookURL string) *Dispatcher {
	if webhookURL == "" {
		return &Dispatcher{}
	}
	http := resty.New()
	http.SetTimeout(10 * time.Second)
	return &Dispatcher{http: http, url: webhookURL}
}

// Send posts one event. Errors are logged, never returned.
func (d *Dispatcher) Send(ctx context.Context, event string, requestID int64, title, message string) {
	if d == nil || d.url == "" {
		return
	}
	payload := Payload{
		Event:     event,
		RequestID: requestID,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
	resp, err := d.http.R().SetContext(ctx).SetBody(payload).Post(d.url)
	if err != nil {
		logger.Warn().Err(err).Str("event", event).Msg("webhook delivery failed")
		return
	}
	if resp.IsError() {
		logger.Warn().Int("status", resp.StatusCode()).Str("event", event).Msg("webhook rejected event")
	}
}
