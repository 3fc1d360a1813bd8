package tester

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Ahsanalpha/google-rich-results-automation/config"
)

// Snapshot is one point-in-time observation of the tool page: its full
// visible text plus presence checks for the indicator elements. Snapshots
// are recomputed on every poll tick and never reused across ticks, because
// the remote condition can change between observations.
type Snapshot struct {
	Text           string
	HasSpinner     bool
	HasViewDetails bool
	HasDataBlock   bool
}

// Completion signal names reported in results and API responses.
const (
	CompletedByViewDetails = "view_details"
	CompletedByDataBlock   = "data_block"
	CompletedByText        = "complete_text"
)

// Signal is the dominant classification of one observation.
type Signal int

const (
	// SignalIndeterminate means neither an error, a processing indicator,
	// nor a completion signal was observed. The machine treats it as "not
	// yet settled" and keeps waiting rather than guessing.
	SignalIndeterminate Signal = iota
	SignalProcessing
	SignalError
	SignalComplete
)

func (s Signal) String() string {
	switch s {
	case SignalProcessing:
		return "processing"
	case SignalError:
		return "error"
	case SignalComplete:
		return "complete"
	default:
		return "indeterminate"
	}
}

// Observation is the classification of one snapshot. The facts are kept
// separate because the states weigh them differently: Waiting never
// consults Error, while Submitted consults Error before anything else.
type Observation struct {
	Error       bool
	Processing  bool
	CompletedBy string // empty when no completion signal is present
}

// Signal reports the dominant signal, ranked error > processing >
// complete > indeterminate. Used for logging and assertions.
func (o Observation) Signal() Signal {
	switch {
	case o.Error:
		return SignalError
	case o.Processing:
		return SignalProcessing
	case o.CompletedBy != "":
		return SignalComplete
	default:
		return SignalIndeterminate
	}
}

// Classifier turns snapshots into observations using the configured text
// patterns. Text matching is deliberately loose (substring/regex over
// visible text, not DOM structure) because the tool's markup is not ours
// and changes without notice.
type Classifier struct {
	errorPat     *regexp.Regexp
	testingPat   *regexp.Regexp
	completeText string
}

// NewClassifier compiles the configured text patterns.
func NewClassifier(cfg config.RunnerConfig) (*Classifier, error) {
	errorPat, err := regexp.Compile(cfg.ErrorPattern)
	if err != nil {
		return nil, fmt.Errorf("error pattern: %w", err)
	}
	testingPat, err := regexp.Compile(cfg.TestingPattern)
	if err != nil {
		return nil, fmt.Errorf("testing pattern: %w", err)
	}
	return &Classifier{
		errorPat:     errorPat,
		testingPat:   testingPat,
		completeText: cfg.CompleteText,
	}, nil
}

// Classify maps one snapshot to its observation. Pure: equal snapshots
// always classify equally.
func (c *Classifier) Classify(s Snapshot) Observation {
	var o Observation
	o.Error = c.errorPat.MatchString(s.Text)
	o.Processing = s.HasSpinner || c.testingPat.MatchString(s.Text)
	switch {
	case s.HasViewDetails:
		o.CompletedBy = CompletedByViewDetails
	case s.HasDataBlock:
		o.CompletedBy = CompletedByDataBlock
	case c.completeText != "" && strings.Contains(s.Text, c.completeText):
		o.CompletedBy = CompletedByText
	}
	return o
}
