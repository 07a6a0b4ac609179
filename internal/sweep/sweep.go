package sweep

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"filevault/internal/service"
)

// Sweeper runs the retention sweep on a recurring schedule, concurrently with
// interactive requests. Each pass trims every file down to its newest
// maxVersions versions.
type Sweeper struct {
	versions    service.VersionService
	maxVersions int
	interval    time.Duration
	deletedCtr  prometheus.Counter
}

// New creates a Sweeper. The counter tracks versions deleted across passes.
func New(versions service.VersionService, maxVersions int, interval time.Duration, reg prometheus.Registerer) (*Sweeper, error) {
	ctr := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retention_versions_deleted_total",
		Help: "Total number of file versions deleted by the retention sweep.",
	})
	if err := reg.Register(ctr); err != nil {
		return nil, err
	}
	return &Sweeper{
		versions:    versions,
		maxVersions: maxVersions,
		interval:    interval,
		deletedCtr:  ctr,
	}, nil
}

// Run blocks until ctx is cancelled, sweeping once per interval. The first
// pass runs after one full interval, not at startup.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	start := time.Now()
	deleted, err := s.versions.CleanupOldVersions(ctx, s.maxVersions)
	if err != nil {
		logJSON(map[string]any{
			"level":       "error",
			"msg":         "retention_sweep_failed",
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return
	}
	s.deletedCtr.Add(float64(deleted))
	logJSON(map[string]any{
		"level":        "info",
		"msg":          "retention_sweep_done",
		"deleted":      deleted,
		"max_versions": s.maxVersions,
		"duration_ms":  time.Since(start).Milliseconds(),
	})
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if b, err := json.Marshal(data); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
