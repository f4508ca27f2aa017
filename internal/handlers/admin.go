// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON API handlers for blogdesk.
// Handlers are grouped by audience (admin, auth, public) and receive
// their dependencies through the handler struct.
package handlers

import (
	"time"

	"blogdesk/internal/cache"
	"blogdesk/internal/forms"
	"blogdesk/internal/models"
	"blogdesk/internal/session"
	"blogdesk/internal/storage"
	"blogdesk/internal/store"
)

// Notifier sends the application's notification emails. Satisfied by
// *notify.Notifier.
type Notifier interface {
	Welcome(u *models.User)
	RolesChanged(u *models.User)
	BlogPublished(b *models.Blog)
}

type noopNotifier struct{}

func (noopNotifier) Welcome(*models.User) {}
func (noopNotifier) RolesChanged(*models.User) {}
func (noopNotifier) BlogPublished(*models.Blog) {}

// AdminDeps are the collaborators of the Admin handler group. Storage,
// Cache and Notifier may be nil.
type AdminDeps struct {
	Sessions   *session.Store
	Blogs      *store.BlogStore
	Categories *store.CategoryStore
	Tags       *store.TagStore
	Users      *store.UserStore
	Roles      *store.RoleStore
	Media      *store.MediaStore
	ErrorLogs  *store.ErrorLogStore
	Storage    *storage.Client
	Cache      *cache.ListCache
	Notifier   Notifier
	Forms      *forms.Registry
}

// Admin groups the authenticated back-office API handlers.
type Admin struct {
	sessions      *session.Store
	blogStore     *store.BlogStore
	categoryStore *store.CategoryStore
	tagStore      *store.TagStore
	userStore     *store.UserStore
	roleStore     *store.RoleStore
	mediaStore    *store.MediaStore
	errorLogs     *store.ErrorLogStore
	storageClient *storage.Client
	listCache     *cache.ListCache
	notifier      Notifier
	forms         *forms.Registry
	now           func() time.Time
}

// NewAdmin creates the Admin handler group.
func NewAdmin(d AdminDeps) *Admin {
	notifier := d.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Admin{
		sessions:      d.Sessions,
		blogStore:     d.Blogs,
		categoryStore: d.Categories,
		tagStore:      d.Tags,
		userStore:     d.Users,
		roleStore:     d.Roles,
		mediaStore:    d.Media,
		errorLogs:     d.ErrorLogs,
		storageClient: d.Storage,
		listCache:     d.Cache,
		notifier:      notifier,
		forms:         d.Forms,
		now:           time.Now,
	}
}
