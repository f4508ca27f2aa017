// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"blogdesk/internal/imaging"
	"blogdesk/internal/middleware"
	"blogdesk/internal/models"
	"blogdesk/internal/query"
	"blogdesk/internal/validation"
)

// maxUploadSize is the maximum accepted image upload (10 MiB).
const maxUploadSize = 10 << 20

// parseCrop reads the optional crop_x, crop_y, crop_w and crop_h form
// fields. All four absent means no crop; otherwise all four are required.
func parseCrop(r *http.Request) (imaging.Rect, error) {
	keys := [4]string{"crop_x", "crop_y", "crop_w", "crop_h"}
	var raw [4]string
	present := 0
	for i, k := range keys {
		raw[i] = strings.TrimSpace(r.FormValue(k))
		if raw[i] != "" {
			present++
		}
	}
	if present == 0 {
		return imaging.Rect{}, nil
	}

	errs := validation.Errors{}
	var vals [4]int
	for i, k := range keys {
		if raw[i] == "" {
			errs.Add(k, "is required when cropping")
			continue
		}
		v, err := strconv.Atoi(raw[i])
		if err != nil {
			errs.Add(k, "must be a whole number")
			continue
		}
		floor := 0
		if i >= 2 {
			floor = 1
		}
		if v < floor {
			errs.Add(k, fmt.Sprintf("must be at least %d", floor))
			continue
		}
		vals[i] = v
	}
	if err := errs.OrNil(); err != nil {
		return imaging.Rect{}, err
	}
	return imaging.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// MediaList returns a page of uploaded media with public URLs.
func (a *Admin) MediaList(w http.ResponseWriter, r *http.Request) {
	q := query.Parse(r.URL.Query(), query.MediaOrder, "created_at")
	items, total, err := a.mediaStore.List(r.Context(), q)
	if err != nil {
		serverError(w, r, a.errorLogs, "list media", err)
		return
	}
	for i := range items {
		items[i].Locate(a.fileURL())
	}
	writeJSON(w, http.StatusOK, query.NewPage(items, total, q))
}

// MediaUpload accepts a multipart image, crops and downsizes it, uploads
// the result to the public bucket and records it.
func (a *Admin) MediaUpload(w http.ResponseWriter, r *http.Request) {
	if a.storageClient == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}
	sess := middleware.SessionFromCtx(r.Context())

	// Limit request body to maxUploadSize plus room for the form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+4096)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large; maximum size is 10 MB")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFieldErrors(w, validation.Errors{"file": "is required"})
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large; maximum size is 10 MB")
		return
	}

	rect, err := parseCrop(r)
	if err != nil {
		storeError(w, r, a.errorLogs, "parse crop", err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	// Trust the bytes, not the client's declared type.
	contentType := http.DetectContentType(data)
	if !imaging.Supported(contentType) {
		writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("file type %q is not allowed", contentType))
		return
	}

	result, err := imaging.Crop(data, contentType, rect, imaging.DefaultMaxWidth)
	switch {
	case errors.Is(err, imaging.ErrEmptyCrop):
		writeFieldErrors(w, validation.Errors{"crop_x": "crop rectangle lies outside the image"})
		return
	case errors.Is(err, imaging.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "image dimensions too large")
		return
	case err != nil:
		slog.Warn("image processing failed", "error", err, "filename", header.Filename)
		writeError(w, http.StatusUnprocessableEntity, "file is not a readable image")
		return
	}

	now := a.now()
	fileID := uuid.New().String()
	key := fmt.Sprintf("media/%d/%02d/%s%s", now.Year(), now.Month(), fileID, result.Ext)

	if err := a.storageClient.Upload(r.Context(), key, result.ContentType, bytes.NewReader(result.Data), int64(len(result.Data))); err != nil {
		serverError(w, r, a.errorLogs, "upload media", err)
		return
	}

	created, err := a.mediaStore.Create(r.Context(), &models.Media{
		Filename:     fileID + result.Ext,
		OriginalName: originalName(header.Filename, result.Ext),
		ContentType:  result.ContentType,
		SizeBytes:    int64(len(result.Data)),
		Bucket:       a.storageClient.PublicBucket(),
		S3Key:        key,
		Width:        result.Width,
		Height:       result.Height,
		Blurhash:     result.Blurhash,
		UploaderID:   sess.UserID,
	})
	if err != nil {
		// Don't leave an orphaned object behind.
		if derr := a.storageClient.Delete(r.Context(), key); derr != nil {
			slog.Warn("s3 cleanup failed", "error", derr, "key", key)
		}
		serverError(w, r, a.errorLogs, "save media", err)
		return
	}

	created.Locate(a.fileURL())
	slog.Info("media uploaded",
		"user", sess.Email,
		"key", key,
		"size", created.HumanSize(),
		"dimensions", created.Dimensions(),
	)
	writeJSON(w, http.StatusCreated, created)
}

// MediaDelete removes a media record and its stored object.
func (a *Admin) MediaDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	// Delete from DB first (returns the row for S3 cleanup).
	deleted, err := a.mediaStore.Delete(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "delete media", err)
		return
	}
	if deleted == nil {
		writeNotFound(w, "media")
		return
	}

	// Object cleanup is best-effort.
	if a.storageClient != nil {
		if err := a.storageClient.Delete(r.Context(), deleted.S3Key); err != nil {
			slog.Warn("s3 delete failed", "error", err, "key", deleted.S3Key)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// fileURL returns the storage URL resolver, or nil without storage.
func (a *Admin) fileURL() func(string) string {
	if a.storageClient == nil {
		return nil
	}
	return a.storageClient.FileURL
}

// originalName keeps the client's base file name but swaps its extension
// for the one actually stored.
func originalName(name, ext string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = "image"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
