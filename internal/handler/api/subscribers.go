// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
)

const subscriberNotFound = "Subscriber not found"

// SubscribeRequest is the body of POST /api/subscribers.
type SubscribeRequest struct {
	Email string `json:"email"`
}

// ListSubscribers handles GET /api/subscribers?page=N.
func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	list, err := h.subscribers.List(r.Context(), queryInt(r, "page", 1))
	if err != nil {
		h.writeServiceError(w, r, err, subscriberNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// Subscribe handles POST /api/subscribers.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.subscribers.Subscribe(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, r, err, subscriberNotFound)
		return
	}
	WriteJSON(w, http.StatusCreated, sub)
}

// DeleteSubscriber handles DELETE /api/subscribers/{id}.
func (h *Handler) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "subscriber")
	if !ok {
		return
	}

	if err := h.subscribers.Unsubscribe(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, subscriberNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Subscriber removed"})
}
