// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/magazine-api/internal/imaging"
	"github.com/olegiv/magazine-api/internal/util"
)

// Upload defaults.
const (
	DefaultMaxUploadSize = 16 * 1024 * 1024 // 16MB
	DefaultUploadDir     = "./uploads"
	maxStemLength        = 64
)

// DefaultUploadExtensions is the extension allowlist used when none is
// configured.
var DefaultUploadExtensions = []string{"png", "jpg", "jpeg", "gif", "webp", "svg", "mp4", "webm", "mov"}

var videoExtensions = []string{"mp4", "webm", "mov"}

// ErrFileTooLarge is returned when an upload exceeds the size limit.
var ErrFileTooLarge = errors.New("file too large")

// MediaConfig configures the upload service.
type MediaConfig struct {
	UploadDir  string
	PublicURL  string
	Extensions []string
	MaxSize    int64
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Name string
	URL  string
	Type string
	Size int64
}

// MediaService stores uploaded images and videos on disk.
type MediaService struct {
	uploadDir  string
	publicURL  string
	extensions []string
	maxSize    int64
	logger     *slog.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(cfg MediaConfig, logger *slog.Logger) *MediaService {
	s := &MediaService{
		uploadDir: cfg.UploadDir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxSize:   cfg.MaxSize,
		logger:    logger,
	}
	if s.uploadDir == "" {
		s.uploadDir = DefaultUploadDir
	}
	if s.maxSize <= 0 {
		s.maxSize = DefaultMaxUploadSize
	}
	for _, ext := range cfg.Extensions {
		if ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")); ext != "" {
			s.extensions = append(s.extensions, ext)
		}
	}
	if len(s.extensions) == 0 {
		s.extensions = DefaultUploadExtensions
	}
	return s
}

// MaxSize returns the upload size limit in bytes.
func (s *MediaService) MaxSize() int64 {
	return s.maxSize
}

// Allowed reports whether files with ext may be uploaded.
func (s *MediaService) Allowed(ext string) bool {
	return slices.Contains(s.extensions, strings.ToLower(ext))
}

// Upload validates and stores a file under a collision-free name derived
// from filename. Raster images are decoded first and JPEGs are re-encoded
// without metadata.
func (s *MediaService) Upload(ctx context.Context, r io.Reader, filename string) (*UploadResult, error) {
	base, err := util.SanitizeFilename(filename)
	if err != nil {
		return nil, &ValidationError{Details: []string{"Invalid filename"}}
	}
	stem, ext := util.SplitExt(base)
	if ext == "" || !s.Allowed(ext) {
		return nil, &ValidationError{Details: []string{
			fmt.Sprintf("File type not allowed. Allowed: %s", strings.Join(s.extensions, ", ")),
		}}
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, &ValidationError{Details: []string{"File is empty"}}
	}

	if imaging.IsRaster(ext) {
		normalized, info, err := imaging.Normalize(data, ext)
		if err != nil {
			s.logger.WarnContext(ctx, "rejected upload", "filename", base, "error", err)
			return nil, &ValidationError{Details: []string{"File is not a valid image"}}
		}
		data = normalized
		s.logger.DebugContext(ctx, "image verified", "format", info.Format, "width", info.Width, "height", info.Height)
	}

	slug := util.Slugify(stem)
	if len(slug) > maxStemLength {
		slug = strings.Trim(slug[:maxStemLength], "-")
	}
	if slug == "" {
		slug = "file"
	}
	name := fmt.Sprintf("%s_%s.%s", slug, uuid.NewString()[:8], ext)

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	path, err := util.SafeJoinPath(s.uploadDir, name)
	if err != nil {
		return nil, fmt.Errorf("resolving upload path: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	kind := "image"
	if slices.Contains(videoExtensions, ext) {
		kind = "video"
	}

	s.logger.InfoContext(ctx, "file uploaded", "name", name, "type", kind, "size", len(data))
	return &UploadResult{
		Name: name,
		URL:  s.publicURL + "/uploads/" + name,
		Type: kind,
		Size: int64(len(data)),
	}, nil
}
