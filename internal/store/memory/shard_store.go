// Package memory contains an in-memory shard store for tests. It models the
// same page semantics as the Postgres store: acquired rows are locked until
// the page finishes, other acquisitions skip locked rows, and a failed
// finish leaves the page's rows untouched.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ntuwsl/indexselect/internal/pipeline"
	"github.com/ntuwsl/indexselect/internal/store"
)

// Row is one url_state record.
type Row struct {
	URL             string
	Domain          string
	ContentPath     string
	FetchOK         int
	ProcessedOK     int
	ProcessedFail   int
	InlinkCount     int
	DomainScore     float64
	IndexPriority   float64
	RejectionReason string
}

// ShardStore keeps shards as maps keyed by url.
type ShardStore struct {
	mu     sync.Mutex
	shards map[int]map[string]*Row
	locked map[int]map[string]bool

	// FinishErr, when set, is consulted before applying a page's results;
	// a non-nil return simulates a crash mid-page (nothing is applied).
	FinishErr func(shard int, page int) error
	// ResetErr, when set, can inject reset failures per attempt.
	ResetErr func(shard int, attempt int) error

	finished     map[int]int
	resetCalls   map[int]int
	acquireCalls map[int]int
}

// NewShardStore returns an empty store.
func NewShardStore() *ShardStore {
	return &ShardStore{
		shards:       make(map[int]map[string]*Row),
		locked:       make(map[int]map[string]bool),
		finished:     make(map[int]int),
		resetCalls:   make(map[int]int),
		acquireCalls: make(map[int]int),
	}
}

// Seed creates the shard (if needed) and inserts rows.
func (s *ShardStore) Seed(shard int, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shards[shard] == nil {
		s.shards[shard] = make(map[string]*Row)
		s.locked[shard] = make(map[string]bool)
	}
	for i := range rows {
		r := rows[i]
		s.shards[shard][r.URL] = &r
	}
}

// Row returns a copy of one row.
func (s *ShardStore) Row(shard int, url string) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.shards[shard][url]
	if !ok {
		return Row{}, false
	}
	return *r, true
}

// Rows returns copies of all rows in url order.
func (s *ShardStore) Rows(shard int) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.shards[shard]))
	for _, r := range s.shards[shard] {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// AcquireCalls reports how many pages were acquired for a shard.
func (s *ShardStore) AcquireCalls(shard int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquireCalls[shard]
}

// AcquirePage implements store.ShardStore.
func (s *ShardStore) AcquirePage(
	_ context.Context,
	shard int,
	cursor string,
	limit int,
) (store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.shards[shard]
	if !ok {
		return nil, store.ErrShardMissing
	}
	s.acquireCalls[shard]++

	var urls []string
	for url, r := range rows {
		if r.FetchOK > 0 && r.ProcessedOK == 0 && r.ProcessedFail == 0 &&
			url > cursor && !s.locked[shard][url] {
			urls = append(urls, url)
		}
	}
	sort.Strings(urls)
	if len(urls) > limit {
		urls = urls[:limit]
	}

	docs := make([]*pipeline.Document, 0, len(urls))
	for _, url := range urls {
		s.locked[shard][url] = true
		r := rows[url]
		docs = append(docs, &pipeline.Document{
			URL:         r.URL,
			Domain:      r.Domain,
			ContentPath: r.ContentPath,
			FetchOK:     r.FetchOK,
			InlinkCount: r.InlinkCount,
			DomainScore: r.DomainScore,
		})
	}
	return &page{store: s, shard: shard, urls: urls, docs: docs}, nil
}

// ResetPage implements store.ShardStore.
func (s *ShardStore) ResetPage(_ context.Context, shard int, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.shards[shard]
	if !ok {
		return 0, store.ErrShardMissing
	}
	s.resetCalls[shard]++
	if s.ResetErr != nil {
		if err := s.ResetErr(shard, s.resetCalls[shard]); err != nil {
			return 0, err
		}
	}

	var cleared int64
	for url, r := range rows {
		if cleared >= int64(limit) {
			break
		}
		if r.FetchOK > 0 && (r.ProcessedOK != 0 || r.ProcessedFail != 0) && !s.locked[shard][url] {
			r.ProcessedOK = 0
			r.ProcessedFail = 0
			cleared++
		}
	}
	return cleared, nil
}

type page struct {
	store *ShardStore
	shard int
	urls  []string
	docs  []*pipeline.Document
	done  bool
}

func (p *page) Docs() []*pipeline.Document { return p.docs }

func (p *page) Finish(_ context.Context, results []store.Result) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if p.done {
		return nil
	}
	p.done = true
	defer p.unlock()

	p.store.finished[p.shard]++
	if p.store.FinishErr != nil {
		if err := p.store.FinishErr(p.shard, p.store.finished[p.shard]); err != nil {
			return err
		}
	}

	rows := p.store.shards[p.shard]
	for _, res := range results {
		r, ok := rows[res.URL]
		if !ok {
			continue
		}
		if res.Accepted {
			r.ProcessedOK = 1
			r.IndexPriority = res.Priority
		} else {
			r.ProcessedFail = 1
			r.IndexPriority = -1
			r.RejectionReason = res.Reason
		}
	}
	return nil
}

func (p *page) Release(_ context.Context) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if p.done {
		return nil
	}
	p.done = true
	p.unlock()
	return nil
}

func (p *page) unlock() {
	for _, url := range p.urls {
		delete(p.store.locked[p.shard], url)
	}
}
