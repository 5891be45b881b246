package arena

import (
	"cmp"
	"slices"
	"strconv"
	"sync"

	"lasso.dev/pkg/lasso/internal/model"
)

// Results is the thread-safe result map of an execution, keyed by adapter.
type Results struct {
	mu       sync.RWMutex
	reports  map[string]model.Report
	cuts     map[string]model.ClassUnderTest
	failures map[string]error
}

// NewResults creates an empty map.
func NewResults() *Results {
	return &Results{
		reports:  map[string]model.Report{},
		cuts:     map[string]model.ClassUnderTest{},
		failures: map[string]error{},
	}
}

// AdapterKey identifies an adapter across CUTs.
func AdapterKey(cut string, adapterID int) string {
	return cut + "#" + strconv.Itoa(adapterID)
}

// merge stores the whole outcome of one task at once.
func (r *Results) merge(cut model.ClassUnderTest, reports []model.Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cuts[cut.Key()] = cut

	if err != nil {
		r.failures[cut.Key()] = err
	}

	for _, report := range reports {
		r.reports[AdapterKey(report.CUT, report.AdapterID)] = report
	}
}

func (r *Results) update(report model.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports[AdapterKey(report.CUT, report.AdapterID)] = report
}

// Get returns the report of one adapter.
func (r *Results) Get(key string) (model.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[key]

	return report, ok
}

// Len counts the adapters.
func (r *Results) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.reports)
}

// Reports returns every report ordered by CUT and adapter id.
func (r *Results) Reports() []model.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reports := make([]model.Report, 0, len(r.reports))
	for _, report := range r.reports {
		reports = append(reports, report)
	}

	slices.SortFunc(reports, func(a, b model.Report) int {
		if c := cmp.Compare(a.CUT, b.CUT); c != 0 {
			return c
		}

		return cmp.Compare(a.AdapterID, b.AdapterID)
	})

	return reports
}

// CUTs returns the executed classes ordered by key.
func (r *Results) CUTs() []model.ClassUnderTest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cuts := make([]model.ClassUnderTest, 0, len(r.cuts))
	for _, cut := range r.cuts {
		cuts = append(cuts, cut)
	}

	slices.SortFunc(cuts, func(a, b model.ClassUnderTest) int { return cmp.Compare(a.Key(), b.Key()) })

	return cuts
}

// Failures returns the task errors keyed by CUT.
func (r *Results) Failures() map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]error, len(r.failures))
	for k, v := range r.failures {
		out[k] = v
	}

	return out
}
