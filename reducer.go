package main

// Screen is the view currently shown. Exactly one is active.
type Screen int

const (
	ScreenSearch Screen = iota
	ScreenDetail
)

func (s Screen) String() string {
	if s == ScreenDetail {
		return "detail"
	}
	return "search"
}

// PendingDetail is shown while a selected package's details are still
// being fetched.
const PendingDetail = "Loading details, please wait..."

// DetailView is what the detail screen renders for a selection.
type DetailView struct {
	Record      PackageRecord
	Description string
	Pending     bool
}

// ScreenState owns the search results, the per-package detail cache and
// which screen is visible. It is only touched from the UI loop; fetch
// workers hand their results back as messages.
type ScreenState struct {
	screen     Screen
	generation int
	results    []PackageRecord
	details    map[string]string // package ID -> description
	selected   PackageRecord
}

// NewScreenState returns the initial state: search screen, no results.
func NewScreenState() *ScreenState {
	return &ScreenState{
		screen:  ScreenSearch,
		details: make(map[string]string),
	}
}

// Screen returns the active screen.
func (s *ScreenState) Screen() Screen { return s.screen }

// Generation identifies the current result set. Fetches started for an
// older generation must be discarded.
func (s *ScreenState) Generation() int { return s.generation }

// Results returns the current result set.
func (s *ScreenState) Results() []PackageRecord { return s.results }

// Selected returns the record shown on the detail screen.
func (s *ScreenState) Selected() PackageRecord { return s.selected }

// NewSearchIssued returns to the search screen and forgets everything
// fetched for the previous results.
func (s *ScreenState) NewSearchIssued() int {
	s.generation++
	s.screen = ScreenSearch
	s.results = nil
	s.selected = PackageRecord{}
	s.details = make(map[string]string)
	return s.generation
}

// SetResults installs the records of a finished search. Results for a
// superseded search are ignored.
func (s *ScreenState) SetResults(generation int, records []PackageRecord) bool {
	if generation != s.generation {
		return false
	}
	s.results = records
	return true
}

// StoreDetail caches the description fetched for id. Late results from
// a superseded search are ignored.
func (s *ScreenState) StoreDetail(generation int, id, description string) bool {
	if generation != s.generation {
		return false
	}
	s.details[id] = description
	return true
}

// Detail returns the cached description for id. A missing entry means
// the fetch has not finished yet.
func (s *ScreenState) Detail(id string) (string, bool) {
	d, ok := s.details[id]
	return d, ok
}

// SelectResult switches to the detail screen for record.
func (s *ScreenState) SelectResult(record PackageRecord) DetailView {
	s.screen = ScreenDetail
	s.selected = record
	return s.CurrentDetail()
}

// CurrentDetail renders the detail view for the selected record. It
// changes from pending to loaded once the fetch lands.
func (s *ScreenState) CurrentDetail() DetailView {
	d, ok := s.details[s.selected.ID]
	if !ok {
		return DetailView{Record: s.selected, Description: PendingDetail, Pending: true}
	}
	return DetailView{Record: s.selected, Description: d}
}

// GoBack returns from the detail screen to the search screen. There is
// no history beyond that.
func (s *ScreenState) GoBack() {
	s.screen = ScreenSearch
}
