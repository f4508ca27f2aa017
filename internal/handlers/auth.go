package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"blogdesk/internal/middleware"
	"blogdesk/internal/models"
	"blogdesk/internal/session"
	"blogdesk/internal/store"
	"blogdesk/internal/validation"
)

// errBadCredentials is the uniform reply for unknown emails and wrong
// passwords.
const errBadCredentials = "invalid email or password"

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions  *session.Store
	userStore *store.UserStore
	errorLogs *store.ErrorLogStore
	issuer    string
}

// NewAuth creates a new Auth handler group. issuer names the account in
// authenticator apps.
func NewAuth(sessions *session.Store, userStore *store.UserStore, errorLogs *store.ErrorLogStore, issuer string) *Auth {
	return &Auth{
		sessions:  sessions,
		userStore: userStore,
		errorLogs: errorLogs,
		issuer:    issuer,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// authResponse tells the SPA who is signed in and which 2FA step is next.
type authResponse struct {
	User          *models.User `json:"user"`
	TwoFARequired bool         `json:"two_fa_required"`
	TwoFASetup    bool         `json:"two_fa_setup"`
}

type setupResponse struct {
	Secret      string `json:"secret"`
	QRPNGBase64 string `json:"qr_png_base64"`
}

// Login checks credentials and opens a session. The session is not
// usable for the API until the second factor is verified.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := a.userStore.FindByEmail(r.Context(), req.Email)
	if err != nil {
		serverError(w, r, a.errorLogs, "login lookup", err)
		return
	}
	if user == nil || !a.userStore.CheckPassword(user, req.Password) {
		slog.Warn("login failed", "email", req.Email)
		writeError(w, http.StatusUnauthorized, errBadCredentials)
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "account is disabled")
		return
	}

	// TwoFADone starts as false; the user must complete 2FA.
	_, err = a.sessions.Create(r.Context(), w, &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Roles:       user.RoleNames(),
	})
	if err != nil {
		serverError(w, r, a.errorLogs, "create session", err)
		return
	}

	slog.Info("login", "user", user.Email, "two_fa_setup", user.Needs2FASetup())
	writeJSON(w, http.StatusOK, authResponse{
		User:          user,
		TwoFARequired: true,
		TwoFASetup:    user.Needs2FASetup(),
	})
}

// TwoFASetup generates a fresh TOTP secret for a user who has not enrolled
// yet and returns it with a QR code.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	user, ok := a.currentUser(w, r, sess)
	if !ok {
		return
	}
	if user.TOTPEnabled {
		writeError(w, http.StatusConflict, "2FA is already set up")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		serverError(w, r, a.errorLogs, "generate totp key", err)
		return
	}
	if err := a.userStore.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		serverError(w, r, a.errorLogs, "save totp secret", err)
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		serverError(w, r, a.errorLogs, "encode qr code", err)
		return
	}

	writeJSON(w, http.StatusOK, setupResponse{
		Secret:      key.Secret(),
		QRPNGBase64: base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// TwoFAVerify validates a TOTP code, enables 2FA on first use and marks
// the session as fully authenticated.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	var req verifyRequest
	if !bind(w, r, &req) {
		return
	}
	user, ok := a.currentUser(w, r, sess)
	if !ok {
		return
	}
	if user.TOTPSecret == nil {
		writeError(w, http.StatusConflict, "2FA setup has not been started")
		return
	}
	if !totp.Validate(req.Code, *user.TOTPSecret) {
		writeFieldErrors(w, validation.Errors{"code": "is invalid"})
		return
	}

	// First successful code finishes enrollment.
	if !user.TOTPEnabled {
		if err := a.userStore.EnableTOTP(r.Context(), user.ID); err != nil {
			serverError(w, r, a.errorLogs, "enable totp", err)
			return
		}
		user.TOTPEnabled = true
	}

	sess.TwoFADone = true
	sess.Roles = user.RoleNames()
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		serverError(w, r, a.errorLogs, "update session", err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user})
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user and their 2FA progress.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	user, ok := a.currentUser(w, r, sess)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		User:          user,
		TwoFARequired: !sess.TwoFADone,
		TwoFASetup:    user.Needs2FASetup(),
	})
}

// currentUser reloads the session's user. A user who was deleted or
// deactivated since login loses the session and gets a 401.
func (a *Auth) currentUser(w http.ResponseWriter, r *http.Request, sess *session.Data) (*models.User, bool) {
	user, err := a.userStore.FindByID(r.Context(), sess.UserID)
	if err != nil {
		serverError(w, r, a.errorLogs, "load session user", err)
		return nil, false
	}
	if user == nil || !user.IsActive {
		if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
			slog.Warn("session destroy failed", "error", err)
		}
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return user, true
}
