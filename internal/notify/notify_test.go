// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectix/connectix/internal/account"
	"github.com/connectix/connectix/internal/notify"
)

type recordingSender struct {
	sent []notify.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func newNotifier(t *testing.T, sender notify.Sender) *notify.Notifier {
	t.Helper()
	templates, err := notify.LoadTemplates()
	require.NoError(t, err)
	n, err := notify.NewNotifier(sender, templates, nil)
	require.NoError(t, err)
	return n
}

func TestLoadTemplates(t *testing.T) {
	templates, err := notify.LoadTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{"forgetPassword", "verificationCode", "welcomeMessage"}, templates.Names())
}

func TestTemplates_Render(t *testing.T) {
	templates, err := notify.LoadTemplates()
	require.NoError(t, err)

	t.Run("welcome", func(t *testing.T) {
		out, err := templates.Render(account.TemplateWelcome, map[string]any{"name": "Ada"})
		require.NoError(t, err)
		assert.Contains(t, out, "Welcome, Ada!")
		assert.Contains(t, out, "<title>Welcome to Connectix</title>")
	})

	t.Run("reset link", func(t *testing.T) {
		link := "https://app.example.com/reset-password/01J/abc.def"
		out, err := templates.Render(account.TemplateForgetPassword, map[string]any{"resetLink": link})
		require.NoError(t, err)
		assert.Contains(t, out, `href="`+link+`"`)
	})

	t.Run("escapes data", func(t *testing.T) {
		out, err := templates.Render(account.TemplateWelcome, map[string]any{"name": "<script>"})
		require.NoError(t, err)
		assert.NotContains(t, out, "<script>")
		assert.Contains(t, out, "&lt;script&gt;")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := templates.Render("nope", nil)
		assert.Error(t, err)
	})
}

func TestNewNotifier_Validation(t *testing.T) {
	templates, err := notify.LoadTemplates()
	require.NoError(t, err)

	_, err = notify.NewNotifier(nil, templates, nil)
	assert.ErrorContains(t, err, "sender is required")
	_, err = notify.NewNotifier(&recordingSender{}, nil, nil)
	assert.ErrorContains(t, err, "templates are required")
}

func TestNotifier_SendPlain(t *testing.T) {
	sender := &recordingSender{}
	n := newNotifier(t, sender)

	require.NoError(t, n.SendPlain(context.Background(), "a@x.com", "Email Verification", "Your verification code is: 1234"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, notify.Message{
		To:      "a@x.com",
		Subject: "Email Verification",
		Body:    "Your verification code is: 1234",
	}, sender.sent[0])
}

func TestNotifier_SendTemplate(t *testing.T) {
	sender := &recordingSender{}
	n := newNotifier(t, sender)

	err := n.SendTemplate(context.Background(), "a@x.com", "Welcome to our Company", account.TemplateWelcome,
		map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.True(t, sender.sent[0].HTML)
	assert.Contains(t, sender.sent[0].Body, "Ada")
}

func TestNotifier_ErrorsCarryNoCode(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay down")}
	n := newNotifier(t, sender)

	err := n.SendPlain(context.Background(), "a@x.com", "s", "b")
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Nil(t, oopsErr.Code())

	wrapped := oops.Code(account.CodeNotificationFailed).Wrap(err)
	assert.Equal(t, account.KindNotificationFailed, account.KindOf(wrapped))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := notify.LogSender{Logger: logger}.Send(context.Background(), notify.Message{To: "a@x.com", Subject: "Hi", Body: "hello"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"a@x.com"`)
	assert.Contains(t, buf.String(), `"body":"hello"`)
}
