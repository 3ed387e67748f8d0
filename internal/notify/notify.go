// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package notify delivers account emails. A Notifier renders templates and
// hands finished messages to a Sender, which is either SMTP or the log.
//
// Errors from this package carry no oops code so callers can classify the
// failure themselves.
package notify

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    bool
}

// Sender delivers a finished message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier implements account.Notifier on top of a Sender.
type Notifier struct {
	sender    Sender
	templates *Templates
	logger    *slog.Logger
}

// NewNotifier creates a Notifier. A nil logger uses slog.Default().
func NewNotifier(sender Sender, templates *Templates, logger *slog.Logger) (*Notifier, error) {
	if sender == nil {
		return nil, oops.Errorf("sender is required")
	}
	if templates == nil {
		return nil, oops.Errorf("templates are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, templates: templates, logger: logger}, nil
}

// SendPlain sends a plain text message.
func (n *Notifier) SendPlain(ctx context.Context, to, subject, body string) error {
	return n.send(ctx, Message{To: to, Subject: subject, Body: body})
}

// SendTemplate renders the named HTML template and sends it.
func (n *Notifier) SendTemplate(ctx context.Context, to, subject, template string, data map[string]any) error {
	body, err := n.templates.Render(template, data)
	if err != nil {
		return oops.With("operation", "render notification").Wrap(err)
	}
	return n.send(ctx, Message{To: to, Subject: subject, Body: body, HTML: true})
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		return oops.With("operation", "send notification").With("subject", msg.Subject).Wrap(err)
	}
	n.logger.DebugContext(ctx, "notification sent", "subject", msg.Subject)
	return nil
}

// LogSender writes messages to a logger instead of delivering them. It is
// meant for local development.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs msg at info level.
func (s LogSender) Send(ctx context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "email not delivered (log driver)",
		"to", msg.To,
		"subject", msg.Subject,
		"html", msg.HTML,
		"body", msg.Body)
	return nil
}
