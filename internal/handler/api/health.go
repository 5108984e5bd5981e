// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/olegiv/magazine-api/internal/cache"
	"github.com/olegiv/magazine-api/internal/middleware"
	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/scheduler"
)

// minDiskSpace is the free space below which the disk check degrades.
const minDiskSpace = 100 * 1024 * 1024

// HealthHandler handles health check requests.
type HealthHandler struct {
	db         *sql.DB
	uploadsDir string
	version    string
	startTime  time.Time

	cache cache.Cache
	jobs  JobLister
}

// JobLister reports the registered background jobs.
type JobLister interface {
	Jobs() []scheduler.JobInfo
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB, uploadsDir, version string) *HealthHandler {
	return &HealthHandler{
		db:         db,
		uploadsDir: uploadsDir,
		version:    version,
		startTime:  time.Now(),
	}
}

// WithCache adds cache statistics to the admin readiness report.
func (h *HealthHandler) WithCache(c cache.Cache) *HealthHandler {
	h.cache = c
	return h
}

// WithJobs adds the background job schedule to the admin readiness report.
func (h *HealthHandler) WithJobs(j JobLister) *HealthHandler {
	h.jobs = j
	return h
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// ReadinessStatus is the body of /health/ready. Uptime and checks are only
// reported to admins.
type ReadinessStatus struct {
	Status  string           `json:"status"`
	Version string           `json:"version,omitempty"`
	Uptime  string           `json:"uptime,omitempty"`
	Checks  map[string]Check `json:"checks,omitempty"`
	Cache   *cache.Stats     `json:"cache,omitempty"`
	Jobs    []JobStatus      `json:"jobs,omitempty"`
	System  *SystemInfo      `json:"system,omitempty"`
}

// JobStatus describes a scheduled background job.
type JobStatus struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	NextRun  time.Time  `json:"next_run"`
	PrevRun  *time.Time `json:"prev_run,omitempty"`
}

// SystemInfo contains runtime information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	MemAlloc     string `json:"mem_alloc"`
}

// Liveness handles GET /health and /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{Status: "alive"})
}

// Readiness handles GET /health/ready. It returns 503 when the database
// cannot be reached.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())

	status, code := "ready", http.StatusOK
	if dbCheck.Status != "healthy" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	resp := ReadinessStatus{Status: status}

	if identity := middleware.GetIdentity(r); identity != nil && identity.Role.AtLeast(model.RoleAdmin) {
		resp.Version = h.version
		resp.Uptime = time.Since(h.startTime).Round(time.Second).String()
		resp.Checks = map[string]Check{
			"database": dbCheck,
			"disk":     h.checkDiskSpace(),
		}
		if h.cache != nil {
			st := h.cache.Stats()
			resp.Cache = &st
		}
		if h.jobs != nil {
			for _, j := range h.jobs.Jobs() {
				js := JobStatus{Name: j.Name, Schedule: j.Schedule, NextRun: j.NextRun}
				if !j.PrevRun.IsZero() {
					js.PrevRun = &j.PrevRun
				}
				resp.Jobs = append(resp.Jobs, js)
			}
		}
		if r.URL.Query().Get("verbose") == "true" {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			resp.System = &SystemInfo{
				GoVersion:    runtime.Version(),
				NumGoroutine: runtime.NumGoroutine(),
				MemAlloc:     formatBytes(m.Alloc),
			}
		}
	}

	WriteJSON(w, code, resp)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: "healthy", Message: "Connected", Latency: latency.String()}
}

// checkDiskSpace checks available disk space in the uploads directory.
func (h *HealthHandler) checkDiskSpace() Check {
	if _, err := os.Stat(h.uploadsDir); os.IsNotExist(err) {
		return Check{Status: "healthy", Message: "Uploads directory does not exist yet"}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.uploadsDir, &stat); err != nil {
		return Check{Status: "unhealthy", Message: "Failed to check disk space: " + err.Error()}
	}

	available := stat.Bavail * uint64(stat.Bsize)
	if available < minDiskSpace {
		return Check{Status: "degraded", Message: "Low disk space: " + formatBytes(available) + " available"}
	}
	return Check{Status: "healthy", Message: formatBytes(available) + " available"}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
