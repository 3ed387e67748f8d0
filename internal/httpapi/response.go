// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/connectix/connectix/internal/account"
	"github.com/connectix/connectix/pkg/errutil"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20

const internalErrorMessage = "Internal server error"

// envelope is the body of every API response: success, message and any
// extra top-level fields.
type envelope map[string]any

func ok(message string, fields ...any) envelope {
	e := envelope{"success": true, "message": message}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, isString := fields[i].(string); isString {
			e[key] = fields[i+1]
		}
	}
	return e
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(kind account.Kind) int {
	switch kind {
	case account.KindDuplicateIdentity,
		account.KindWeakPassword,
		account.KindInvalidCode,
		account.KindInvalidState,
		account.KindIncorrectPassword,
		account.KindInvalidInput:
		return http.StatusBadRequest
	case account.KindNotFound:
		return http.StatusNotFound
	case account.KindEmailNotVerified:
		return http.StatusForbidden
	case account.KindInvalidPassword,
		account.KindInvalidOrExpiredToken,
		account.KindInvalidToken,
		account.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error. Messages of non-public kinds are
// replaced and the error is logged instead.
func (h *handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := account.KindOf(err)
	status := statusOf(kind)
	if !kind.Public() {
		attrs := append(errutil.Attrs(err), "kind", string(kind), "request_id", middleware.GetReqID(ctx))
		h.logger.ErrorContext(ctx, "request failed", attrs...)
		writeFailure(w, status, internalErrorMessage)
		return
	}
	writeFailure(w, status, err.Error())
}

// decode reads a JSON body into dst. An empty body leaves dst zeroed so the
// service reports the missing fields.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeFailure(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	h.logger.DebugContext(r.Context(), "malformed request body", slog.String("error", err.Error()))
	writeFailure(w, http.StatusBadRequest, "Malformed JSON request body")
	return false
}
