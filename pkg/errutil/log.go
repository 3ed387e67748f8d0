// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package errutil holds helpers for logging and asserting samber/oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Attrs flattens err into slog key/value pairs. oops errors contribute their
// code and context map; anything else is logged as its string.
func Attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// LogError logs err at ERROR with its structured context.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(ctx, msg, Attrs(err)...)
}
