package tester

import (
	"context"

	"github.com/Ahsanalpha/google-rich-results-automation/models"
)

// Surface is the page-automation capability the state machine drives. It is
// the whole contract between the core and the browser: implementations live
// in the browser package, tests use a scripted fake.
type Surface interface {
	// Observe returns the page's current rendered condition.
	Observe(ctx context.Context) (Snapshot, error)

	// SubmitInput enters value into the tool's input field and confirms it,
	// equivalent to typing the value and pressing Enter.
	SubmitInput(ctx context.Context, value string) error

	// ActivateControl clicks the first control matching selector whose text
	// matches pattern (JS regex in /.../flags form). Best effort: reports
	// whether anything was activated and treats absence as a no-op.
	ActivateControl(ctx context.Context, selector, pattern string) bool
}

// Page is a Surface that can also navigate and produce the final artifact.
type Page interface {
	Surface

	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Capture(ctx context.Context, region models.Region, format string, quality int) ([]byte, error)
	Close()
}

// PageOpener hands out pages for exclusive use by one check. Declared here
// rather than in the browser package so the core stays importable without
// pulling in rod; the wiring site adapts the browser session with OpenerFunc.
type PageOpener interface {
	OpenPage(ctx context.Context, stealth bool) (Page, error)
}

// OpenerFunc adapts a function to the PageOpener interface.
type OpenerFunc func(ctx context.Context, stealth bool) (Page, error)

func (f OpenerFunc) OpenPage(ctx context.Context, stealth bool) (Page, error) {
	return f(ctx, stealth)
}
