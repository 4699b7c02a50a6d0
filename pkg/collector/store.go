package collector

import (
	"sort"
	"sync"

	"github.com/runtime-release-mapper/pkg/mapping"
	"github.com/runtime-release-mapper/pkg/vcs"
)

// PRRecord is a pull request as seen by the mapper.
type PRRecord struct {
	vcs.PullRequest
	Branch     string
	Direct     bool
	FromMaster bool
	OriginalPR int
}

// PRStore caches pull requests discovered during one mapper run.
type PRStore struct {
	mu      sync.Mutex
	records map[int]PRRecord
}

func NewPRStore() *PRStore {
	return &PRStore{records: make(map[int]PRRecord)}
}

// Put records rec. The first branch to report a PR keeps it along with its
// membership flags; later sightings only fill in missing details.
func (s *PRStore) Put(rec PRRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.Number]
	if !ok {
		s.records[rec.Number] = rec
		return
	}
	if existing.OriginalPR == 0 {
		existing.OriginalPR = rec.OriginalPR
	}
	if existing.Body == "" {
		existing.Body = rec.Body
	}
	if existing.MergedAt.IsZero() {
		existing.MergedAt = rec.MergedAt
	}
	s.records[rec.Number] = existing
}

func (s *PRStore) Get(number int) (PRRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[number]
	return rec, ok
}

func (s *PRStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of every record, ordered by PR number.
func (s *PRStore) Records() []PRRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PRRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// PullRequests converts the store into the attributor's input.
func (s *PRStore) PullRequests() map[int]mapping.PullRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]mapping.PullRequest, len(s.records))
	for n, rec := range s.records {
		out[n] = mapping.PullRequest{
			Number:     n,
			MergedAt:   rec.MergedAt,
			OriginalPR: rec.OriginalPR,
			Direct:     rec.Direct,
			FromMaster: rec.FromMaster,
		}
	}
	return out
}

// MissingOriginals lists original PRs referenced by backports but not cached.
func (s *PRStore) MissingOriginals() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int]bool)
	var missing []int
	for _, rec := range s.records {
		if rec.OriginalPR == 0 || seen[rec.OriginalPR] {
			continue
		}
		if _, ok := s.records[rec.OriginalPR]; !ok {
			seen[rec.OriginalPR] = true
			missing = append(missing, rec.OriginalPR)
		}
	}
	sort.Ints(missing)
	return missing
}
