package contracts

import "time"

// IngestStats counts the outcome of one dataset's window fetch.
type IngestStats struct {
	Dataset   Dataset `json:"dataset"`
	Fetched   int     `json:"fetched"`
	Persisted int     `json:"persisted"`
	Skipped   int     `json:"skipped"` // duplicates already staged
	Failed    bool    `json:"failed"`
	Error     string  `json:"error,omitempty"`
}

// ConformStats counts the outcome of one dataset's conformance pass.
// Dropped records are absorbed and counted, never fatal.
type ConformStats struct {
	Dataset        Dataset `json:"dataset"`
	Input          int     `json:"input"`
	Conformed      int     `json:"conformed"`
	DroppedBadTime int     `json:"dropped_bad_timestamp"`
	DroppedBadArea int     `json:"dropped_unknown_area"`
	Suspect        int     `json:"suspect"`
}

// Total dropped records for this dataset.
func (c ConformStats) Dropped() int {
	return c.DroppedBadTime + c.DroppedBadArea
}

// AggregateStats counts the outcome of the rollup/join/upsert stage.
type AggregateStats struct {
	CO2HourBuckets int `json:"co2_hour_buckets"`
	JoinGaps       int `json:"join_gaps"`
	FactRows       int `json:"fact_rows"`
	FactsUpserted  int `json:"facts_upserted"`
	KeysSkipped    int `json:"keys_skipped"` // per-key computation failures
}

// QualityReport maps each post-load check to its violation count.
// Violations are observability, not failures; the gate never raises.
type QualityReport struct {
	Window     DateWindow     `json:"window"`
	CheckedAt  time.Time      `json:"checked_at"`
	Violations map[string]int `json:"violations"`
}

// TotalViolations sums violations across all checks.
func (r *QualityReport) TotalViolations() int {
	total := 0
	for _, n := range r.Violations {
		total += n
	}
	return total
}

// Clean reports whether the battery found no violations at all.
func (r *QualityReport) Clean() bool {
	return r.TotalViolations() == 0
}

// RunSummary is the user-visible outcome of one pipeline invocation.
// Counts are reported even on partial failure so operators can quantify
// data loss without reading logs.
type RunSummary struct {
	Window     DateWindow `json:"window"`
	Datasets   []Dataset  `json:"datasets"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`

	Ingest    []IngestStats  `json:"ingest"`
	Conform   []ConformStats `json:"conform"`
	Aggregate AggregateStats `json:"aggregate"`
	Quality   *QualityReport `json:"quality,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// Succeeded reports whether every requested dataset made it into facts.
func (s *RunSummary) Succeeded() bool {
	if len(s.Errors) > 0 {
		return false
	}
	for _, ing := range s.Ingest {
		if ing.Failed {
			return false
		}
	}
	return true
}

// Duration of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
