// Package browser drives a Chromium window through Playwright and exposes
// it as a page.Page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/autoanswer/pkg/logging"
)

// Manager owns the Playwright driver and the sessions launched from it.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	initialized bool
	log         logging.Leveled
}

// NewManager creates a manager. Call Initialize before StartSession.
func NewManager(log logging.Leveled) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Initialize installs the browser driver if needed and starts Playwright.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// StartSession launches a browser and opens a blank page with response
// capture attached.
func (m *Manager) StartSession(ctx context.Context, name string, opts SessionOptions) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}

	opts = opts.withDefaults()
	recorder, err := NewRecorder(opts.ResponsePatterns, opts.MaxHTMLBody, opts.MaxResponses)
	if err != nil {
		return nil, err
	}

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	pg, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	pg.SetDefaultTimeout(*millis(opts.Timeout))

	now := time.Now()
	session := &Session{
		Name:       name,
		Browser:    browser,
		Context:    bctx,
		Page:       pg,
		Headless:   opts.Headless,
		CreatedAt:  now,
		recorder:   recorder,
		timeout:    opts.Timeout,
		log:        m.log,
		lastUsedAt: now,
	}
	pg.OnResponse(session.onResponse)

	m.sessions[name] = session
	m.log.Infof("browser session %q started (headless=%t)", name, opts.Headless)
	return session, nil
}

// GetSession retrieves an active session by name.
func (m *Manager) GetSession(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[name]
	if !exists {
		return nil, fmt.Errorf("session %q not found", name)
	}
	return session, nil
}

// CloseSession closes and removes a browser session.
func (m *Manager) CloseSession(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[name]
	if !exists {
		return fmt.Errorf("session %q not found", name)
	}
	delete(m.sessions, name)
	return session.Close()
}

// Shutdown closes all sessions and stops Playwright.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, session := range m.sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %q: %w", name, err))
		}
		delete(m.sessions, name)
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.initialized = false
	}
	return errors.Join(errs...)
}
