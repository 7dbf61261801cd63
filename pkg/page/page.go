// Package page defines the contract between the answering core and the
// page-automation layer that drives the browser.
//
// The core never talks to a browser directly. Everything it needs (element
// counts, clicks, fills, script evaluation, captured network responses and
// reloads) goes through the Page interface. The Playwright implementation
// lives in package browser; tests use package pagetest.
//
// Every Page method is expected to be individually safe to retry. The core
// never issues two calls against the same page concurrently.
package page

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoMatch is returned by Click and Fill when no element matches the selector.
var ErrNoMatch = errors.New("no element matches selector")

// Page is the page-automation surface consumed by the answering core.
type Page interface {
	// Census counts the interactive answer controls currently rendered.
	Census(ctx context.Context) (Census, error)

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Fill writes value into the first element matching selector.
	Fill(ctx context.Context, selector, value string) error

	// Evaluate runs script in the page and returns its JSON-decoded result.
	// arg is passed to the script as its single argument.
	Evaluate(ctx context.Context, script string, arg any) (any, error)

	// ResponsesSince returns the captured responses observed at or after since.
	ResponsesSince(ctx context.Context, since time.Time) ([]Response, error)

	// Reload reloads the current page and waits for it to settle.
	Reload(ctx context.Context) error
}

// Census is the interactive-element inventory used for classification.
type Census struct {
	Radios     int `json:"radios"`
	Checkboxes int `json:"checkboxes"`
	TextInputs int `json:"textInputs"`
	Textareas  int `json:"textareas"`
	Videos     int `json:"videos"`

	// TextareaHint is the lower-cased placeholder and class of the first textarea.
	TextareaHint string `json:"textareaHint"`
}

// Choices returns the number of choice controls.
func (c Census) Choices() int {
	return c.Radios + c.Checkboxes
}

// Empty reports whether no answer control of any kind was found.
func (c Census) Empty() bool {
	return c.Choices() == 0 && c.TextInputs == 0 && c.Textareas == 0
}

// Response is one captured network response or DOM text block.
type Response struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
	ReceivedAt  time.Time
}

// IsJSON reports whether the response carries a JSON document.
func (r Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "json")
}

// IsHTML reports whether the response carries HTML markup.
func (r Response) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "html")
}
