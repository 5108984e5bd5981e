// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/olegiv/magazine-api/internal/service"
)

// multipartOverhead is the allowance for multipart boundaries and headers
// on top of the file size limit.
const multipartOverhead = 1 << 20

// uploadFields are the accepted form field names of the file part.
var uploadFields = map[string]bool{"image": true, "file": true}

// UploadFile describes a stored upload in the editor-compatible response.
type UploadFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Success int        `json:"success"`
	File    UploadFile `json:"file"`
	Type    string     `json:"type"`
}

// Upload handles POST /api/upload. The file is streamed from the first
// multipart part named "image" or "file".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.media.MaxSize()+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		WriteBadRequest(w, "Expected a multipart/form-data request")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.writeServiceError(w, r, service.ErrFileTooLarge, "")
				return
			}
			WriteBadRequest(w, "Malformed multipart body")
			return
		}

		if !uploadFields[part.FormName()] {
			_ = part.Close()
			continue
		}
		if part.FileName() == "" {
			_ = part.Close()
			WriteBadRequest(w, "No selected file")
			return
		}

		result, err := h.media.Upload(r.Context(), part, part.FileName())
		_ = part.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				err = service.ErrFileTooLarge
			}
			h.writeServiceError(w, r, err, "")
			return
		}

		WriteJSON(w, http.StatusOK, UploadResponse{
			Success: 1,
			File:    UploadFile{URL: result.URL, Name: result.Name, Size: result.Size},
			Type:    result.Type,
		})
		return
	}

	WriteBadRequest(w, "No file part")
}
