package browser

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/autoanswer/pkg/page"
)

// Recorder keeps the network responses worth mining for answers: JSON
// bodies, and HTML or text bodies under a size limit, from URLs that match
// one of the configured globs.
type Recorder struct {
	mu        sync.Mutex
	patterns  []glob.Glob
	maxHTML   int
	capacity  int
	responses []page.Response
	now       func() time.Time
}

// NewRecorder compiles patterns. Matching is case-insensitive.
func NewRecorder(patterns []string, maxHTMLBody, capacity int) (*Recorder, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid response pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return &Recorder{
		patterns: compiled,
		maxHTML:  maxHTMLBody,
		capacity: capacity,
		now:      time.Now,
	}, nil
}

// Matches reports whether url matches any pattern.
func (r *Recorder) Matches(url string) bool {
	url = strings.ToLower(url)
	for _, g := range r.patterns {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// Accepts reports whether a response with this URL, content type and body
// size would be kept.
func (r *Recorder) Accepts(url, contentType string, size int) bool {
	if !r.Matches(url) {
		return false
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return true
	case strings.Contains(ct, "html"), strings.HasPrefix(ct, "text/"):
		return size < r.maxHTML
	}
	return false
}

// Add records a response if Accepts allows it, stamping it with the
// current time. It reports whether the response was kept.
func (r *Recorder) Add(url string, status int, contentType string, body []byte) bool {
	if !r.Accepts(url, contentType, len(body)) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, page.Response{
		URL:         url,
		Status:      status,
		ContentType: contentType,
		Body:        body,
		ReceivedAt:  r.now(),
	})
	if over := len(r.responses) - r.capacity; r.capacity > 0 && over > 0 {
		r.responses = append(r.responses[:0:0], r.responses[over:]...)
	}
	return true
}

// Since returns the responses received at or after t, oldest first.
func (r *Recorder) Since(t time.Time) []page.Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []page.Response
	for _, resp := range r.responses {
		if !resp.ReceivedAt.Before(t) {
			out = append(out, resp)
		}
	}
	return out
}

// Len returns the number of buffered responses.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses)
}

// Reset drops every buffered response.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = nil
}
