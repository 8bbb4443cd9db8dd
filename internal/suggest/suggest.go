// Package suggest implements the debounced autocomplete box above the
// product table.
package suggest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/scylladb/go-set/strset"
	"go.uber.org/zap"

	"github.com/omelentjeff/product-management-app/internal/model"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultDelay   = 300 * time.Millisecond
	DefaultLimit   = 10
	DefaultTimeout = 10 * time.Second
)

// Searcher runs a product search.
type Searcher interface {
	Search(ctx context.Context, term string) (model.Page, error)
}

// Options configures a Controller.
type Options struct {
	// Delay is the quiet period after the last keystroke before a query is sent.
	Delay time.Duration
	// Limit caps the number of suggestions shown.
	Limit int
	// Timeout bounds each suggestion query.
	Timeout time.Duration
	// OnSearch receives the active search term on Select ("" on Clear).
	OnSearch func(term string)
	// OnChange receives a snapshot after every state change.
	OnChange func(State)
	Logger   *zap.Logger
}

// State is a rendering snapshot of the search box.
type State struct {
	Input       string
	Term        string
	Suggestions []string
	Open        bool
	Err         error
}

// Controller debounces keystrokes: each Input cancels the pending timer and
// starts a new one, and only the surviving timer queries the server.
type Controller struct {
	src  Searcher
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	input       string
	term        string
	suggestions []string
	open        bool
	err         error
	timer       *time.Timer
	gen         uint64
}

// New builds an idle controller. Close it to stop pending timers.
func New(src Searcher, opts Options) *Controller {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{src: src, opts: opts, ctx: ctx, cancel: cancel}
}

// Input records a keystroke. Empty input hides the dropdown without a query.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	c.input = text
	c.resetLocked()
	if strings.TrimSpace(text) != "" {
		gen := c.gen
		c.timer = time.AfterFunc(c.opts.Delay, func() { c.fire(gen, text) })
	}
	c.mu.Unlock()
	c.notify()
}

// Select makes value the active search term; the input mirrors it.
func (c *Controller) Select(value string) {
	c.mu.Lock()
	c.input, c.term = value, value
	c.resetLocked()
	c.mu.Unlock()
	if c.opts.OnSearch != nil {
		c.opts.OnSearch(value)
	}
	c.notify()
}

// Clear empties the box and the active term.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.input, c.term = "", ""
	c.resetLocked()
	c.mu.Unlock()
	if c.opts.OnSearch != nil {
		c.opts.OnSearch("")
	}
	c.notify()
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Close stops any pending timer and cancels an in-flight query.
func (c *Controller) Close() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	c.cancel()
}

// Lookup queries suggestions for text immediately, bypassing the debounce.
func (c *Controller) Lookup(ctx context.Context, text string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	page, err := c.src.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	return names(page.Content, c.opts.Limit), nil
}

// resetLocked supersedes any pending or in-flight query and hides the dropdown.
func (c *Controller) resetLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.suggestions = nil
	c.open = false
	c.err = nil
}

func (c *Controller) fire(gen uint64, text string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	c.opts.Logger.Debug("suggest query", zap.String("text", text))
	got, err := c.Lookup(c.ctx, text)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.opts.Logger.Debug("discarding stale suggestions", zap.String("text", text))
		return
	}
	c.err = err
	if err == nil {
		c.suggestions = got
		c.open = len(got) > 0
	} else {
		c.opts.Logger.Warn("suggest query failed", zap.Error(err))
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) stateLocked() State {
	return State{
		Input:       c.input,
		Term:        c.term,
		Suggestions: append([]string(nil), c.suggestions...),
		Open:        c.open,
		Err:         c.err,
	}
}

func (c *Controller) notify() {
	if c.opts.OnChange == nil {
		return
	}
	c.opts.OnChange(c.State())
}

// names returns distinct product names in result order, at most limit.
func names(ps []model.Product, limit int) []string {
	out := make([]string, 0, min(len(ps), limit))
	seen := strset.NewWithSize(len(ps))
	for _, p := range ps {
		if len(out) == limit {
			break
		}
		if p.Name == "" {
			continue
		}
		if seen.Has(p.Name) {
			continue
		}
		seen.Add(p.Name)
		out = append(out, p.Name)
	}
	return out
}
