// Package pagetest provides a scriptable in-memory page.Page for tests.
package pagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/autoanswer/pkg/page"
)

// FillCall records one Fill invocation.
type FillCall struct {
	Selector string
	Value    string
}

// Fake is a page.Page whose behaviour is configured field by field.
// The zero value is usable: no controls, no clickable elements, fills succeed,
// scripts return nil.
type Fake struct {
	mu sync.Mutex

	// CensusValue is returned by Census unless CensusErr is set.
	CensusValue page.Census
	CensusErr   error

	// Clickable lists the selectors Click succeeds on.
	Clickable map[string]bool

	// FillErr, when set, fails every Fill.
	FillErr error

	// Scripts maps a script to its handler. Unknown scripts return nil.
	Scripts map[string]func(arg any) (any, error)

	// OnClick runs after every successful click, outside the lock.
	OnClick func(f *Fake, selector string)

	// OnReload runs after every reload, outside the lock.
	OnReload func(f *Fake)

	// ReloadErr, when set, fails every Reload.
	ReloadErr error

	responses []page.Response

	// Recorded calls.
	Clicks      []string
	Fills       []FillCall
	Evaluations []string
	Reloads     int
}

// New returns a Fake with the given census.
func New(census page.Census) *Fake {
	return &Fake{
		CensusValue: census,
		Clickable:   make(map[string]bool),
		Scripts:     make(map[string]func(arg any) (any, error)),
	}
}

// AllowClick marks selectors as clickable.
func (f *Fake) AllowClick(selectors ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Clickable == nil {
		f.Clickable = make(map[string]bool)
	}
	for _, s := range selectors {
		f.Clickable[s] = true
	}
	return f
}

// Script installs a handler for script.
func (f *Fake) Script(script string, fn func(arg any) (any, error)) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Scripts == nil {
		f.Scripts = make(map[string]func(arg any) (any, error))
	}
	f.Scripts[script] = fn
	return f
}

// Returns installs a script handler that always yields v.
func (f *Fake) Returns(script string, v any) *Fake {
	return f.Script(script, func(any) (any, error) { return v, nil })
}

// Push records a captured response. A zero ReceivedAt is set to now.
func (f *Fake) Push(r page.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now()
	}
	f.responses = append(f.responses, r)
}

// PushJSON records a JSON response body.
func (f *Fake) PushJSON(url, body string) {
	f.Push(page.Response{URL: url, Status: 200, ContentType: "application/json", Body: []byte(body)})
}

// PushHTML records an HTML response body.
func (f *Fake) PushHTML(url, body string) {
	f.Push(page.Response{URL: url, Status: 200, ContentType: "text/html; charset=utf-8", Body: []byte(body)})
}

// Census implements page.Page.
func (f *Fake) Census(ctx context.Context) (page.Census, error) {
	if err := ctx.Err(); err != nil {
		return page.Census{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CensusValue, f.CensusErr
}

// Click implements page.Page.
func (f *Fake) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	ok := f.Clickable[selector]
	if ok {
		f.Clicks = append(f.Clicks, selector)
	}
	hook := f.OnClick
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("click %q: %w", selector, page.ErrNoMatch)
	}
	if hook != nil {
		hook(f, selector)
	}
	return nil
}

// Fill implements page.Page.
func (f *Fake) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FillErr != nil {
		return f.FillErr
	}
	f.Fills = append(f.Fills, FillCall{Selector: selector, Value: value})
	return nil
}

// Evaluate implements page.Page.
func (f *Fake) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Evaluations = append(f.Evaluations, script)
	fn := f.Scripts[script]
	f.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(arg)
}

// ResponsesSince implements page.Page.
func (f *Fake) ResponsesSince(ctx context.Context, since time.Time) ([]page.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []page.Response
	for _, r := range f.responses {
		if !r.ReceivedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Reload implements page.Page.
func (f *Fake) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if f.ReloadErr != nil {
		f.mu.Unlock()
		return f.ReloadErr
	}
	f.Reloads++
	hook := f.OnReload
	f.mu.Unlock()

	if hook != nil {
		hook(f)
	}
	return nil
}

// ReloadCount returns the number of successful reloads.
func (f *Fake) ReloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reloads
}

// FillCalls returns a copy of the recorded fills.
func (f *Fake) FillCalls() []FillCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FillCall(nil), f.Fills...)
}

// ClickCalls returns a copy of the recorded clicks.
func (f *Fake) ClickCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Clicks...)
}

var _ page.Page = (*Fake)(nil)
