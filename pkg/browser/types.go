package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Default values for session options.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultMaxHTMLBody    = 10000
	DefaultMaxResponses   = 200
)

// DefaultResponsePatterns are the URL globs whose responses are captured.
var DefaultResponsePatterns = []string{"*api*", "*ajax*", "*submit*", "*check*", "*answer*"}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout bounds every click, fill, evaluation and navigation
	Timeout time.Duration

	// ResponsePatterns are glob patterns matched against response URLs
	ResponsePatterns []string

	// MaxHTMLBody is the largest HTML or text body kept, in bytes
	MaxHTMLBody int

	// MaxResponses caps the capture buffer; the oldest responses are dropped
	MaxResponses int
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.Viewport == nil {
		o.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ResponsePatterns == nil {
		o.ResponsePatterns = DefaultResponsePatterns
	}
	if o.MaxHTMLBody <= 0 {
		o.MaxHTMLBody = DefaultMaxHTMLBody
	}
	if o.MaxResponses <= 0 {
		o.MaxResponses = DefaultMaxResponses
	}
	return o
}

// millis converts a duration to the float milliseconds Playwright expects.
func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d) / float64(time.Millisecond))
}
