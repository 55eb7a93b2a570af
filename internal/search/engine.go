package search

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
)

// TaskSource provides the live collection plus historical archive snapshots.
type TaskSource interface {
	LoadAll() ([]domain.Task, error)
	ListArchives() ([]string, error)
	LoadArchive(name string) ([]domain.Task, error)
}

// Pagination describes the returned page of a result set.
type Pagination struct {
	Page         int  `json:"page"`
	TotalPages   int  `json:"totalPages"`
	TotalResults int  `json:"totalResults"`
	HasMore      bool `json:"hasMore"`
}

// Result is one page of matching tasks plus pagination metadata.
type Result struct {
	Tasks      []domain.Task `json:"tasks"`
	Pagination Pagination    `json:"pagination"`
}

const (
	DefaultPageSize = 5

	// How many archive files one query may open, most recent first. A
	// latency bound, not a correctness requirement.
	DefaultArchiveScanLimit = 50

	archiveReadConcurrency = 4
)

// Engine answers keyword and id queries over the live collection unioned
// with archived snapshots. Live tasks win on id collision.
type Engine struct {
	source           TaskSource
	pageSize         int
	archiveScanLimit int
	logger           *zap.Logger
}

func NewEngine(source TaskSource, pageSize, archiveScanLimit int, logger *zap.Logger) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if archiveScanLimit <= 0 {
		archiveScanLimit = DefaultArchiveScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		source:           source,
		pageSize:         pageSize,
		archiveScanLimit: archiveScanLimit,
		logger:           logger,
	}
}

// Search runs the query. With isIDSearch the query is matched exactly
// against task ids; otherwise it is split on whitespace and every keyword
// must substring-match (case-insensitively) one of the task's text fields.
// An empty keyword query matches everything. Page is 1-indexed and clamped
// into range; pageSize 0 uses the engine default.
func (e *Engine) Search(query string, isIDSearch bool, page, pageSize int) (*Result, error) {
	if pageSize <= 0 {
		pageSize = e.pageSize
	}

	keywords := strings.Fields(strings.ToLower(query))
	match := func(t *domain.Task) bool {
		if isIDSearch {
			return t.ID == strings.TrimSpace(query)
		}
		return matchesKeywords(t, keywords)
	}

	live, err := e.source.LoadAll()
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Task, 0)
	seen := make(map[string]bool)
	for _, t := range live {
		if match(&t) {
			matched = append(matched, t)
			seen[t.ID] = true
		}
	}

	archived, err := e.scanArchives(match)
	if err != nil {
		return nil, err
	}
	for _, t := range archived {
		if !seen[t.ID] {
			matched = append(matched, t)
			seen[t.ID] = true
		}
	}

	sortByRecency(matched)
	return paginate(matched, page, pageSize), nil
}

// scanArchives applies the predicate across archive snapshots, most recent
// first, reading files concurrently with bounded fan-out.
func (e *Engine) scanArchives(match func(*domain.Task) bool) ([]domain.Task, error) {
	names, err := e.source.ListArchives()
	if err != nil {
		return nil, err
	}
	if len(names) > e.archiveScanLimit {
		names = names[:e.archiveScanLimit]
	}

	var mu sync.Mutex
	perArchive := make([][]domain.Task, len(names))

	var g errgroup.Group
	g.SetLimit(archiveReadConcurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			tasks, err := e.source.LoadArchive(name)
			if err != nil {
				// A damaged archive degrades recall, nothing more.
				e.logger.Warn("skipping unreadable archive", zap.String("archive", name), zap.Error(err))
				return nil
			}
			var hits []domain.Task
			for _, t := range tasks {
				if match(&t) {
					hits = append(hits, t)
				}
			}
			mu.Lock()
			perArchive[i] = hits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Flatten in archive order so newer snapshots win the dedup upstream.
	var out []domain.Task
	for _, hits := range perArchive {
		out = append(out, hits...)
	}
	return out, nil
}

func matchesKeywords(t *domain.Task, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	fields := []string{
		strings.ToLower(t.Name),
		strings.ToLower(t.Description),
		strings.ToLower(t.Notes),
		strings.ToLower(t.ImplementationGuide),
		strings.ToLower(t.Summary),
	}
	for _, kw := range keywords {
		found := false
		for _, field := range fields {
			if strings.Contains(field, kw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sortByRecency orders completed tasks first by completion time descending,
// then everything else by update time descending.
func sortByRecency(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.CompletedAt != nil && b.CompletedAt != nil:
			if !a.CompletedAt.Equal(*b.CompletedAt) {
				return a.CompletedAt.After(*b.CompletedAt)
			}
		case a.CompletedAt != nil:
			return true
		case b.CompletedAt != nil:
			return false
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
}

func paginate(tasks []domain.Task, page, pageSize int) *Result {
	total := len(tasks)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &Result{
		Tasks: tasks[start:end],
		Pagination: Pagination{
			Page:         page,
			TotalPages:   totalPages,
			TotalResults: total,
			HasMore:      page < totalPages,
		},
	}
}
