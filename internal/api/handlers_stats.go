package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docforge/internal/pipeline"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	byStatus := make(map[pipeline.JobStatus]int)
	for _, snap := range s.orchestrator.Jobs() {
		byStatus[snap.Status]++
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth":    s.orchestrator.QueueDepth(),
		"jobs_by_status": byStatus,
		"workers":        s.cfg.Server.WorkerCount,
	})
}
