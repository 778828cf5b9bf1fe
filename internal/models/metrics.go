package models

import "time"

// MetricsSnapshot is a JSON-friendly summary of the process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64                     `json:"requests_total"`
	AverageRequestDurationMs float64                    `json:"average_request_duration_ms"`
	CacheHits                uint64                     `json:"cache_hits"`
	CacheMisses              uint64                     `json:"cache_misses"`
	CacheHitRatio            float64                    `json:"cache_hit_ratio"`
	Allocations              map[string]AllocationStats `json:"allocations"`
	JobFailures              uint64                     `json:"job_failures"`
	Goroutines               int                        `json:"goroutines"`
	GeneratedAt              time.Time                  `json:"generated_at"`
}

// AllocationStats aggregates the runs of one allocator kind.
type AllocationStats struct {
	Runs       uint64 `json:"runs"`
	Placed     uint64 `json:"placed"`
	Unresolved uint64 `json:"unresolved"`
}
