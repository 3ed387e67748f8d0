// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/connectix/connectix/internal/account"
)

// AccountService is the account API the handlers drive. *account.Service
// implements it.
type AccountService interface {
	Register(ctx context.Context, in account.RegisterInput) (ulid.ULID, error)
	VerifyEmailCode(ctx context.Context, email, code string) (*account.Verification, error)
	VerifyEmailToken(ctx context.Context, raw string) error
	UpdateProfile(ctx context.Context, in account.ProfileInput) (ulid.ULID, error)
	CompleteRegistration(ctx context.Context, in account.CompleteInput) (*account.Summary, error)
	Login(ctx context.Context, email, password string) (*account.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	CheckResetLink(ctx context.Context, accountID, raw string) error
	ResetPassword(ctx context.Context, accountID, raw, newPassword string) error
	ChangePassword(ctx context.Context, sessionToken, currentPassword, newPassword string) error
	Authenticate(ctx context.Context, sessionToken string) (ulid.ULID, error)
	Account(ctx context.Context, id ulid.ULID) (*account.Summary, error)
	EnableTwoFA(ctx context.Context, email string) (*account.TwoFAEnrollment, error)
	VerifyTwoFA(ctx context.Context, email, code string) error
	VerifyTwoFALogin(ctx context.Context, email, code string) (*account.LoginResult, error)
}

var _ AccountService = (*account.Service)(nil)

type handler struct {
	svc          AccountService
	logger       *slog.Logger
	cookieName   string
	cookieMaxAge time.Duration
	cookieSecure bool
	maxBodyBytes int64
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyCodeRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
}

type profileRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Gender   string `json:"gender"`
	State    string `json:"state"`
}

type completeRequest struct {
	UserID     string `json:"userId"`
	StageName  string `json:"stagename"`
	MusicStyle string `json:"musicstyle"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type totpRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *handler) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ok("Backend Connected Successfully"))
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.Register(r.Context(), account.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("Initial registration successful. Please verify your email.",
		"userId", id.String()))
}

func (h *handler) verifyEmailCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.svc.VerifyEmailCode(r.Context(), req.Email, req.VerificationCode)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Email verified successfully",
		"userId", v.AccountID.String(),
		"token", v.Token))
}

func (h *handler) verifyEmailLink(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifyEmailToken(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Email verified successfully"))
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.UpdateProfile(r.Context(), account.ProfileInput{
		AccountID: req.UserID,
		Username:  req.Username,
		Gender:    req.Gender,
		State:     req.State,
	})
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Additional information updated successfully", "userId", id.String()))
}

func (h *handler) completeRegistration(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.svc.CompleteRegistration(r.Context(), account.CompleteInput{
		AccountID:  req.UserID,
		StageName:  req.StageName,
		MusicStyle: req.MusicStyle,
	})
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Registration completed successfully", "user", summary))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	if res.TwoFARequired {
		writeJSON(w, http.StatusOK, ok("2FA Required", "twoFARequired", true))
		return
	}
	h.writeSession(w, res)
}

func (h *handler) writeSession(w http.ResponseWriter, res *account.LoginResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.cookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, ok("User Login Successfully",
		"user", res.Account,
		"token", res.Token))
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Reset link successfully sent, kindly check your email to set a new password"))
}

func (h *handler) checkResetLink(w http.ResponseWriter, r *http.Request) {
	err := h.svc.CheckResetLink(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Reset password link is valid."))
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("Password changed successfully"))
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.svc.ChangePassword(r.Context(), h.sessionToken(r), req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Password changed successfully"))
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.Authenticate(r.Context(), h.sessionToken(r))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	summary, err := h.svc.Account(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Authenticated", "user", summary))
}

func (h *handler) enableTwoFA(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	enrollment, err := h.svc.EnableTwoFA(r.Context(), req.Email)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("2FA enabled",
		"qrCodeUrl", enrollment.QRCode,
		"secret", enrollment.Secret,
		"otpauthUrl", enrollment.URL))
}

func (h *handler) verifyTwoFA(w http.ResponseWriter, r *http.Request) {
	var req totpRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.VerifyTwoFA(r.Context(), req.Email, req.Token); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("2FA verified"))
}

func (h *handler) verifyTwoFALogin(w http.ResponseWriter, r *http.Request) {
	var req totpRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyTwoFALogin(r.Context(), req.Email, req.Token)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeSession(w, res)
}

// sessionToken reads a Bearer token, falling back to the session cookie.
func (h *handler) sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, tok, found := strings.Cut(auth, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if c, err := r.Cookie(h.cookieName); err == nil {
		return c.Value
	}
	return ""
}
