package model

import "time"

// MirrorReport summarizes one completed mirror session.
// It is the unit persisted to the history database and rendered by the
// report writers.
type MirrorReport struct {
	// StartURL is the URL the crawl started from.
	StartURL string `json:"start_url"`

	// Depth is the maximum number of link hops that were followed.
	Depth int `json:"depth"`

	// ArchiveName is the suggested file name of the produced archive.
	ArchiveName string `json:"archive_name"`

	// ArchiveBytes is the size of the serialized archive.
	ArchiveBytes int64 `json:"archive_bytes"`

	// Pages lists the pages localized into the archive.
	Pages []*Page `json:"pages"`

	// Resources lists every scheduled resource entry, including failed ones.
	Resources []*ResourceEntry `json:"resources"`

	// StartedAt and FinishedAt bound the session.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// TimedOut reports that the session was cut short by context
	// cancellation. The archive still contains everything fetched so far.
	TimedOut bool `json:"timed_out,omitempty"`
}

// Duration returns the wall-clock duration of the session.
func (r *MirrorReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ResourceCounts tallies stored resources by kind. Failed entries are not
// counted because they produced no archive file.
func (r *MirrorReport) ResourceCounts() map[ResourceKind]int {
	counts := make(map[ResourceKind]int)
	for _, res := range r.Resources {
		if res.Failed {
			continue
		}
		counts[res.Kind]++
	}
	return counts
}

// SkippedResources returns the number of resources whose fetch failed.
func (r *MirrorReport) SkippedResources() int {
	n := 0
	for _, res := range r.Resources {
		if res.Failed {
			n++
		}
	}
	return n
}

// TotalResourceBytes returns the sum of all stored resource sizes.
func (r *MirrorReport) TotalResourceBytes() int64 {
	var total int64
	for _, res := range r.Resources {
		total += res.Size
	}
	return total
}
