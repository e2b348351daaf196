package main

// TUI messages for the Elm architecture

// sinkOp is a LineSink mutation marshalled onto the UI loop.
type sinkOp int

const (
	sinkReset sinkOp = iota
	sinkAppend
	sinkReplace
	sinkSeal
)

// sinkMsg carries one output mutation from the streaming worker
type sinkMsg struct {
	op   sinkOp
	text string
}

// busyMsg reports that a live operation started or finished
type busyMsg struct {
	busy bool
}

// searchResultsMsg contains the parsed search table or an error
type searchResultsMsg struct {
	generation int
	records    []PackageRecord
	err        error
}

// detailFetchedMsg delivers the description of one search result.
// Fetches run one after another; each result triggers the next.
type detailFetchedMsg struct {
	generation  int
	index       int
	id          string
	description string
	err         error
}

// operationDoneMsg reports the outcome of a live install, uninstall or
// upgrade run
type operationDoneMsg struct {
	action   string
	id       string
	outcomes []Outcome
}

// upgradesLoadedMsg contains the upgrade listing or an error
type upgradesLoadedMsg struct {
	candidates []UpgradeCandidate
	err        error
}
