// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Media represents an image uploaded to S3-compatible object storage,
// usually after being cropped in the admin image cropper.
type Media struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Bucket       string    `json:"bucket"`
	S3Key        string    `json:"s3_key"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Blurhash     string    `json:"blurhash"`
	UploaderID   uuid.UUID `json:"uploader_id"`
	CreatedAt    time.Time `json:"created_at"`

	// URL is filled by handlers from the storage client.
	URL string `json:"url,omitempty"`
}

// Locate fills URL from the stored object key. A nil resolver (no storage
// configured) leaves URL empty.
func (m *Media) Locate(fileURL func(key string) string) {
	if fileURL == nil || m.S3Key == "" {
		m.URL = ""
		return
	}
	m.URL = fileURL(m.S3Key)
}

// Dimensions returns "WIDTHxHEIGHT", or "" when either side is unknown.
func (m *Media) Dimensions() string {
	if m.Width <= 0 || m.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// HumanSize returns a human-readable file size string.
func (m *Media) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case m.SizeBytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(m.SizeBytes)/float64(mb))
	case m.SizeBytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(m.SizeBytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", m.SizeBytes)
	}
}
