package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/bojops/internal/database"
	"github.com/aristath/bojops/internal/scheduler"
	"github.com/aristath/bojops/internal/work"
)

// SystemHandlers reports process, host and store status.
type SystemHandlers struct {
	service   *work.Service
	scheduler *scheduler.Scheduler
	databases []*database.DB
	dataDir   string
	started   time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers. scheduler and databases may be nil.
func NewSystemHandlers(service *work.Service, sched *scheduler.Scheduler, databases []*database.DB, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		service:   service,
		scheduler: sched,
		databases: databases,
		dataDir:   dataDir,
		started:   time.Now(),
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
}

// DatabaseStatus is the status of one SQLite database.
type DatabaseStatus struct {
	Name  string          `json:"name"`
	Stats *database.Stats `json:"stats,omitempty"`
	Error string          `json:"error,omitempty"`
}

// SystemStatusResponse is returned by GET /api/system/status.
type SystemStatusResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	GoVersion     string           `json:"go_version"`
	Goroutines    int              `json:"goroutines"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	DiskFreeGB    float64          `json:"disk_free_gb"`
	DiskUsedPct   float64          `json:"disk_used_percent"`
	Operations    int              `json:"operations"`
	FirstDate     string           `json:"first_date,omitempty"`
	LastDate      string           `json:"last_date,omitempty"`
	Refreshing    bool             `json:"refreshing"`
	Databases     []DatabaseStatus `json:"databases,omitempty"`
}

// Snapshot collects the current status. Host metric failures are logged
// and leave the metric at zero.
func (h *SystemHandlers) Snapshot() SystemStatusResponse {
	resp := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		Refreshing:    h.service.Running(),
	}

	// 100ms keeps the endpoint responsive while still sampling CPU
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		resp.CPUPercent = cpuPercent[0]
	}
	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		resp.MemoryPercent = memStat.UsedPercent
	}
	if h.dataDir != "" {
		if usage, err := disk.Usage(h.dataDir); err != nil {
			h.log.Warn().Err(err).Msg("Failed to get disk usage")
		} else {
			resp.DiskFreeGB = float64(usage.Free) / 1e9
			resp.DiskUsedPct = usage.UsedPercent
		}
	}

	collection := h.service.Collection()
	resp.Operations = collection.Len()
	if first, ok := collection.First(); ok {
		resp.FirstDate = first.Date().String()
	}
	if last, ok := collection.Last(); ok {
		resp.LastDate = last.Date().String()
	}

	for _, db := range h.databases {
		status := DatabaseStatus{Name: db.Name()}
		if stats, err := db.GetStats(); err != nil {
			status.Error = err.Error()
			resp.Status = "degraded"
		} else {
			status.Stats = stats
		}
		resp.Databases = append(resp.Databases, status)
	}
	return resp
}

// HandleSystemStatus returns process, host and store status
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	writeJSON(w, h.log, http.StatusOK, h.Snapshot())
}

// HandleJobs lists scheduled jobs and their next run
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	entries := []scheduler.EntryInfo{}
	if h.scheduler != nil {
		entries = h.scheduler.Entries()
	}
	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"jobs":  entries,
		"count": len(entries),
	})
}
