package tester

import (
	"testing"

	"github.com/Ahsanalpha/google-rich-results-automation/config"
)

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(config.RunnerConfig{
		ErrorPattern:   "(?i)something went wrong",
		TestingPattern: `(?i)\btesting\b`,
		CompleteText:   "TEST COMPLETE",
	})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return c
}

func TestClassify(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		name            string
		snap            Snapshot
		wantSignal      Signal
		wantCompletedBy string
	}{
		{
			name:       "empty page",
			snap:       Snapshot{},
			wantSignal: SignalIndeterminate,
		},
		{
			name:       "neutral text",
			snap:       Snapshot{Text: "Rich Results Test\nEnter a URL to test"},
			wantSignal: SignalIndeterminate,
		},
		{
			name:       "error text exact",
			snap:       Snapshot{Text: "Something went wrong"},
			wantSignal: SignalError,
		},
		{
			name:       "error text upper case",
			snap:       Snapshot{Text: "SOMETHING WENT WRONG. Try again later."},
			wantSignal: SignalError,
		},
		{
			name:       "error text embedded",
			snap:       Snapshot{Text: "Oops. something Went Wrong while testing"},
			wantSignal: SignalError,
		},
		{
			name:       "spinner element",
			snap:       Snapshot{HasSpinner: true},
			wantSignal: SignalProcessing,
		},
		{
			name:       "testing label",
			snap:       Snapshot{Text: "Testing your page, hang tight"},
			wantSignal: SignalProcessing,
		},
		{
			name:       "testing needs a word boundary",
			snap:       Snapshot{Text: "attesting documents"},
			wantSignal: SignalIndeterminate,
		},
		{
			name:            "view details affordance",
			snap:            Snapshot{Text: "Page is eligible", HasViewDetails: true},
			wantSignal:      SignalComplete,
			wantCompletedBy: CompletedByViewDetails,
		},
		{
			name:            "structured data block",
			snap:            Snapshot{HasDataBlock: true},
			wantSignal:      SignalComplete,
			wantCompletedBy: CompletedByDataBlock,
		},
		{
			name:            "literal complete text",
			snap:            Snapshot{Text: "TEST COMPLETE"},
			wantSignal:      SignalComplete,
			wantCompletedBy: CompletedByText,
		},
		{
			name:       "complete text is case sensitive",
			snap:       Snapshot{Text: "test complete"},
			wantSignal: SignalIndeterminate,
		},
		{
			name:            "view details wins over data block",
			snap:            Snapshot{HasViewDetails: true, HasDataBlock: true},
			wantSignal:      SignalComplete,
			wantCompletedBy: CompletedByViewDetails,
		},
		{
			name:       "error outranks completion in the dominant signal",
			snap:       Snapshot{Text: "Something went wrong", HasViewDetails: true},
			wantSignal: SignalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := c.Classify(tt.snap)
			if got := obs.Signal(); got != tt.wantSignal {
				t.Errorf("Classify(%+v).Signal() = %v, want %v", tt.snap, got, tt.wantSignal)
			}
			if obs.CompletedBy != tt.wantCompletedBy {
				t.Errorf("Classify(%+v).CompletedBy = %q, want %q", tt.snap, obs.CompletedBy, tt.wantCompletedBy)
			}
		})
	}
}

func TestClassifyKeepsFactsSeparate(t *testing.T) {
	c := testClassifier(t)

	// Error text and a completion affordance on the same snapshot: both
	// facts must survive so Waiting can ignore the error and complete.
	obs := c.Classify(Snapshot{Text: "Something went wrong", HasViewDetails: true})
	if !obs.Error {
		t.Error("Error = false, want true")
	}
	if obs.CompletedBy != CompletedByViewDetails {
		t.Errorf("CompletedBy = %q, want %q", obs.CompletedBy, CompletedByViewDetails)
	}

	obs = c.Classify(Snapshot{Text: "Testing", HasSpinner: true, HasDataBlock: true})
	if !obs.Processing {
		t.Error("Processing = false, want true")
	}
	if obs.CompletedBy != CompletedByDataBlock {
		t.Errorf("CompletedBy = %q, want %q", obs.CompletedBy, CompletedByDataBlock)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := testClassifier(t)
	snap := Snapshot{Text: "Testing your page", HasSpinner: true}

	first := c.Classify(snap)
	second := c.Classify(snap)
	if first != second {
		t.Errorf("Classify not idempotent: %+v vs %+v", first, second)
	}
}

func TestNewClassifierRejectsBadPattern(t *testing.T) {
	_, err := NewClassifier(config.RunnerConfig{
		ErrorPattern:   "(unclosed",
		TestingPattern: `ok`,
	})
	if err == nil {
		t.Fatal("NewClassifier accepted an invalid pattern")
	}
}
