// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"blogdesk/internal/export"
	"blogdesk/internal/middleware"
	"blogdesk/internal/models"
	"blogdesk/internal/query"
	"blogdesk/internal/session"
	"blogdesk/internal/store"
)

type userCreateRequest struct {
	Email       string      `json:"email" validate:"required,email,max=254"`
	Password    string      `json:"password" validate:"required,password"`
	DisplayName string      `json:"display_name" validate:"notblank,max=100"`
	IsActive    *bool       `json:"is_active"`
	RoleIDs     []uuid.UUID `json:"role_ids" validate:"max=10"`
}

type userUpdateRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"omitempty,password"`
	DisplayName string `json:"display_name" validate:"notblank,max=100"`
	IsActive    *bool  `json:"is_active"`
}

type userRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" validate:"max=10"`
}

// UsersList returns a page of users, optionally filtered by role.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	q := query.ParseUser(r.URL.Query())
	users, total, err := a.userStore.List(r.Context(), q)
	if err != nil {
		serverError(w, r, a.errorLogs, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, query.NewPage(users, total, q.Params))
}

// UsersExport streams every user matching the list filters as CSV.
func (a *Admin) UsersExport(w http.ResponseWriter, r *http.Request) {
	q := query.ParseUser(r.URL.Query())
	q.Page, q.PageSize = 1, export.MaxRows

	users, _, err := a.userStore.List(r.Context(), q)
	if err != nil {
		serverError(w, r, a.errorLogs, "export users", err)
		return
	}

	b := export.NewBuilder[models.User]().
		Add("ID", func(u models.User) string { return u.ID.String() }).
		Add("Email", func(u models.User) string { return u.Email }).
		Add("Display name", func(u models.User) string { return u.DisplayName }).
		AddIf(q.Role == "", "Roles", func(u models.User) string { return export.Join(u.RoleNames()) }).
		Add("Active", func(u models.User) string { return export.Bool(u.IsActive) }).
		Add("2FA enabled", func(u models.User) string { return export.Bool(u.TOTPEnabled) }).
		Add("Created at", func(u models.User) string { return export.Time(u.CreatedAt) })

	writeCSV(w, r, a.errorLogs, export.Filename("users", a.now()), b, users)
}

// UserGet returns a single user with roles.
func (a *Admin) UserGet(w http.ResponseWriter, r *http.Request) {
	user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UserCreate creates a user and sends the welcome email.
func (a *Admin) UserCreate(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !bind(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	created, err := a.userStore.Create(r.Context(), store.CreateUserParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.DisplayName),
		IsActive:    active,
		RoleIDs:     req.RoleIDs,
	})
	if err != nil {
		storeError(w, r, a.errorLogs, "create user", err)
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	slog.Info("user created", "admin", sess.Email, "new_user", created.Email, "roles", created.RoleNames())
	a.notifier.Welcome(created)
	writeJSON(w, http.StatusCreated, created)
}

// UserUpdate changes a user's profile, activation and optionally password.
// Deactivating or re-keying a user ends their sessions.
func (a *Admin) UserUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	var req userUpdateRequest
	if !bind(w, r, &req) {
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	self := existing.ID == sess.UserID
	active := existing.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}

	if existing.IsActive && !active {
		if self {
			writeError(w, http.StatusConflict, "you cannot deactivate your own account")
			return
		}
		if existing.IsAdmin() && !a.otherActiveAdmins(w, r) {
			return
		}
	}

	params := store.UpdateUserParams{
		ID:          existing.ID,
		Email:       req.Email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		IsActive:    active,
	}
	if req.Password != "" {
		params.Password = &req.Password
	}

	updated, err := a.userStore.Update(r.Context(), params)
	if err != nil {
		storeError(w, r, a.errorLogs, "update user", err)
		return
	}
	if updated == nil {
		writeNotFound(w, "user")
		return
	}

	switch {
	case self:
		a.refreshSession(r, sess, updated)
	case !active || params.Password != nil:
		a.endSessions(r.Context(), updated.ID)
	}
	writeJSON(w, http.StatusOK, updated)
}

// UserSetRoles replaces a user's roles and notifies them.
func (a *Admin) UserSetRoles(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	var req userRolesRequest
	if !bind(w, r, &req) {
		return
	}

	keepsAdmin, err := a.includesAdmin(r.Context(), req.RoleIDs)
	if err != nil {
		serverError(w, r, a.errorLogs, "load roles", err)
		return
	}
	sess := middleware.SessionFromCtx(r.Context())
	self := existing.ID == sess.UserID
	if existing.IsAdmin() && !keepsAdmin {
		if self {
			writeError(w, http.StatusConflict, "you cannot remove your own admin role")
			return
		}
		if existing.IsActive && !a.otherActiveAdmins(w, r) {
			return
		}
	}

	if err := a.userStore.SetRoles(r.Context(), existing.ID, req.RoleIDs); err != nil {
		storeError(w, r, a.errorLogs, "set user roles", err)
		return
	}
	updated, err := a.userStore.FindByID(r.Context(), existing.ID)
	if err != nil {
		serverError(w, r, a.errorLogs, "reload user", err)
		return
	}
	if updated == nil {
		writeNotFound(w, "user")
		return
	}

	slog.Info("user roles changed", "admin", sess.Email, "user", updated.Email, "roles", updated.RoleNames())
	if self {
		a.refreshSession(r, sess, updated)
	} else {
		a.endSessions(r.Context(), updated.ID)
	}
	a.notifier.RolesChanged(updated)
	writeJSON(w, http.StatusOK, updated)
}

// UserResetTwoFA clears a user's TOTP secret so they enroll again on the
// next login. Admins cannot reset their own 2FA.
func (a *Admin) UserResetTwoFA(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if id == sess.UserID {
		writeError(w, http.StatusForbidden, "cannot reset your own 2FA")
		return
	}

	user, err := a.userStore.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "find user", err)
		return
	}
	if user == nil {
		writeNotFound(w, "user")
		return
	}
	if err := a.userStore.ResetTOTP(r.Context(), id); err != nil {
		serverError(w, r, a.errorLogs, "reset 2fa", err)
		return
	}
	a.endSessions(r.Context(), id)

	slog.Info("2fa reset by admin", "admin", sess.Email, "target_user", id)
	w.WriteHeader(http.StatusNoContent)
}

// UserDelete removes a user. Admins cannot delete themselves or the last
// active admin, and users who still own blogs or media are kept.
func (a *Admin) UserDelete(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromCtx(r.Context())
	if existing.ID == sess.UserID {
		writeError(w, http.StatusConflict, "you cannot delete your own account")
		return
	}
	if existing.IsAdmin() && existing.IsActive && !a.otherActiveAdmins(w, r) {
		return
	}

	deleted, err := a.userStore.Delete(r.Context(), existing.ID)
	if err != nil {
		storeError(w, r, a.errorLogs, "delete user", err)
		return
	}
	if !deleted {
		writeNotFound(w, "user")
		return
	}
	a.endSessions(r.Context(), existing.ID)

	slog.Info("user deleted", "admin", sess.Email, "user", existing.Email)
	w.WriteHeader(http.StatusNoContent)
}

func (a *Admin) loadUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return nil, false
	}
	user, err := a.userStore.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "find user", err)
		return nil, false
	}
	if user == nil {
		writeNotFound(w, "user")
		return nil, false
	}
	return user, true
}

// otherActiveAdmins reports whether an active admin would remain after the
// target admin loses access. It writes the 409 itself.
func (a *Admin) otherActiveAdmins(w http.ResponseWriter, r *http.Request) bool {
	n, err := a.userStore.CountActiveAdmins(r.Context())
	if err != nil {
		serverError(w, r, a.errorLogs, "count admins", err)
		return false
	}
	if n <= 1 {
		writeError(w, http.StatusConflict, "at least one active admin is required")
		return false
	}
	return true
}

// includesAdmin reports whether roleIDs contains the admin role.
func (a *Admin) includesAdmin(ctx context.Context, roleIDs []uuid.UUID) (bool, error) {
	admin, err := a.roleStore.FindByName(ctx, models.RoleAdmin)
	if err != nil || admin == nil {
		return false, err
	}
	for _, id := range roleIDs {
		if id == admin.ID {
			return true, nil
		}
	}
	return false, nil
}

// refreshSession copies the user's current profile into the caller's own
// session so role and name changes apply without logging in again.
func (a *Admin) refreshSession(r *http.Request, sess *session.Data, u *models.User) {
	next := *sess
	next.Email = u.Email
	next.DisplayName = u.DisplayName
	next.Roles = u.RoleNames()
	if err := a.sessions.Update(r.Context(), r, &next); err != nil {
		slog.Warn("session refresh failed", "user_id", u.ID, "error", err)
	}
}

// endSessions logs a user out everywhere. Failures are logged only; the
// sessions expire on their own.
func (a *Admin) endSessions(ctx context.Context, userID uuid.UUID) {
	if err := a.sessions.DestroyUser(ctx, userID); err != nil {
		slog.Warn("destroy user sessions failed", "user_id", userID, "error", err)
		a.errorLogs.Log(ctx, models.LevelWarn, errorSource, err, map[string]any{"user_id": userID.String()})
	}
}
