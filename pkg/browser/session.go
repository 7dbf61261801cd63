package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/autoanswer/pkg/logging"
	"github.com/entrhq/autoanswer/pkg/page"
)

// Session is one browser window driving the course page. It implements
// page.Page.
type Session struct {
	// Name is the unique identifier for this session
	Name string

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the current active page
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	recorder *Recorder
	timeout  time.Duration
	log      logging.Leveled

	mu         sync.Mutex
	lastUsedAt time.Time
	pending    sync.WaitGroup
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsedAt = time.Now()
	s.mu.Unlock()
}

// LastUsedAt is the time of the last operation on this session.
func (s *Session) LastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// CurrentURL is the URL of the current page.
func (s *Session) CurrentURL() string {
	return s.Page.URL()
}

// Recorder returns the session's response recorder.
func (s *Session) Recorder() *Recorder {
	return s.recorder
}

// onResponse runs on the driver's event loop, which must not block on
// another driver call, so the body is fetched on its own goroutine.
func (s *Session) onResponse(resp playwright.Response) {
	if !s.recorder.Matches(resp.URL()) {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.capture(resp)
	}()
}

func (s *Session) capture(resp playwright.Response) {
	url := resp.URL()
	contentType, _ := resp.HeaderValue("content-type")
	body, err := resp.Body()
	if err != nil {
		s.log.Debugf("skipping response body for %s: %v", url, err)
		return
	}
	if s.recorder.Add(url, resp.Status(), contentType, body) {
		s.log.Debugf("captured response %s (%s, %d bytes)", url, contentType, len(body))
	}
}

// Navigate opens url and waits for the network to go idle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()

	_, err := s.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   millis(s.timeout),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Census implements page.Page.
func (s *Session) Census(ctx context.Context) (page.Census, error) {
	var c page.Census
	raw, err := s.Evaluate(ctx, page.ScriptCensus, nil)
	if err != nil {
		return c, err
	}
	if err := decodeInto(raw, &c); err != nil {
		return c, fmt.Errorf("decode census: %w", err)
	}
	return c, nil
}

// Click implements page.Page.
func (s *Session) Click(ctx context.Context, selector string) error {
	loc, err := s.first(ctx, selector)
	if err != nil {
		return err
	}
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: millis(s.timeout)}); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill implements page.Page.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	loc, err := s.first(ctx, selector)
	if err != nil {
		return err
	}
	if err := loc.Fill(value, playwright.LocatorFillOptions{Timeout: millis(s.timeout)}); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// first resolves selector to its first match, or page.ErrNoMatch.
func (s *Session) first(ctx context.Context, selector string) (playwright.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.touch()

	loc := s.Page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", page.ErrNoMatch, selector)
	}
	return loc.First(), nil
}

// Evaluate implements page.Page.
func (s *Session) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.touch()

	result, err := s.Page.Evaluate(script, arg)
	if err != nil {
		return nil, fmt.Errorf("JavaScript execution failed: %w", err)
	}
	return result, nil
}

// ResponsesSince implements page.Page.
func (s *Session) ResponsesSince(ctx context.Context, since time.Time) ([]page.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.recorder.Since(since), nil
}

// Reload implements page.Page.
func (s *Session) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()

	_, err := s.Page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   millis(s.timeout),
	})
	if err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// Close releases the page, context and browser.
func (s *Session) Close() error {
	err := errors.Join(s.Page.Close(), s.Context.Close(), s.Browser.Close())
	s.pending.Wait()
	return err
}

// decodeInto converts an evaluation result into v through JSON.
func decodeInto(raw any, v any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

var _ page.Page = (*Session)(nil)
