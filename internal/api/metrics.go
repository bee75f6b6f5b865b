package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
)

// RuntimeStatus is reported by the process wiring for /metrics.
type RuntimeStatus struct {
	MQTTConnected   bool   `json:"mqtt_connected"`
	InfluxConnected bool   `json:"influxdb_connected"`
	Ticks           uint64 `json:"ticks"`
	JournalWritten  uint64 `json:"journal_written"`
	JournalDropped  uint64 `json:"journal_dropped"`
	BridgeDropped   uint64 `json:"bridge_dropped"`
}

// StatusFunc reports collaborator health.
type StatusFunc func() RuntimeStatus

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	Control       ControlMetrics `json:"control"`
	Status        *RuntimeStatus `json:"status,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedMessages  uint64 `json:"dropped_messages"`
}

// ControlMetrics summarises the engine.
type ControlMetrics struct {
	Junctions         int                              `json:"junctions"`
	ByState           map[arbitration.ControlState]int `json:"by_state"`
	ActivePreemptions int                              `json:"active_preemptions"`
}

// handleMetrics returns system and control metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshots := s.engine.Snapshots()
	control := ControlMetrics{
		Junctions:         len(snapshots),
		ByState:           make(map[arbitration.ControlState]int),
		ActivePreemptions: len(s.engine.ActivePreemptions()),
	}
	for _, snap := range snapshots {
		control.ByState[snap.ControlState]++
	}

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			DroppedMessages:  s.hub.Dropped(),
		},
		Control: control,
	}

	if s.status != nil {
		status := s.status()
		metrics.Status = &status
	}

	writeJSON(w, http.StatusOK, metrics)
}
