// Package listctl owns the product table state: pagination, sorting,
// search term and the rows currently displayed.
package listctl

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/omelentjeff/product-management-app/internal/model"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultPageSize = 10
	DefaultSortKey  = "name"
)

// ErrSuperseded is returned by a fetch whose result was discarded because
// the query changed while it was in flight.
var ErrSuperseded = errors.New("superseded by a newer query")

// Source fetches listing and search pages. Page is 0-based.
type Source interface {
	List(ctx context.Context, page, size int, sort string) (model.Page, error)
	Search(ctx context.Context, term string) (model.Page, error)
}

// RoleSource tells whether the current user may edit.
type RoleSource interface {
	IsAdmin() bool
}

// Options configures a Controller.
type Options struct {
	PageSize int
	SortKey  string
	SortDir  model.SortDirection
	Logger   *zap.Logger
}

// State is a rendering snapshot.
type State struct {
	Query      model.Query
	Rows       []model.Product
	TotalPages int
	Loading    bool
	Err        error
}

// Controller is safe for concurrent use. Every query change triggers one
// fetch; only the newest fetch may update the rows.
type Controller struct {
	src   Source
	roles RoleSource
	log   *zap.Logger

	mu         sync.Mutex
	q          model.Query
	rows       []model.Product
	totalPages int
	loading    bool
	err        error
	gen        uint64
	subs       []func(State)
}

// New builds a controller on page 1 with the configured sort.
func New(src Source, roles RoleSource, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.SortKey == "" {
		opts.SortKey = DefaultSortKey
	}
	if opts.SortDir == "" {
		opts.SortDir = model.Asc
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{
		src:   src,
		roles: roles,
		log:   opts.Logger,
		q: model.Query{
			Page:     1,
			PageSize: opts.PageSize,
			SortKey:  opts.SortKey,
			SortDir:  opts.SortDir,
		},
		rows: []model.Product{},
	}
}

// OnChange registers fn to receive a snapshot after every state change.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	rows := make([]model.Product, len(c.rows))
	for i, r := range c.rows {
		rows[i] = r.Clone()
	}
	return State{Query: c.q, Rows: rows, TotalPages: c.totalPages, Loading: c.loading, Err: c.err}
}

// Refresh fetches the page for the current query. With a search term the
// search endpoint is used exclusively and sort/pagination are ignored.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen, q := c.gen, c.q
	c.loading = true
	c.mu.Unlock()
	c.notify()

	var (
		page model.Page
		err  error
	)
	if q.Search != "" {
		page, err = c.src.Search(ctx, q.Search)
	} else {
		page, err = c.src.List(ctx, q.Page-1, q.PageSize, q.SortParam())
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("discarding stale page", zap.Uint64("gen", gen), zap.String("search", q.Search), zap.Int("page", q.Page))
		return ErrSuperseded
	}
	c.loading = false
	c.err = err
	if err == nil {
		c.rows = page.Content
		if c.rows == nil {
			c.rows = []model.Product{}
		}
		c.totalPages = page.TotalPages
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.log.Warn("fetch products failed", zap.Error(err))
	}
	return err
}

func (c *Controller) update(ctx context.Context, fn func(q *model.Query)) error {
	c.mu.Lock()
	fn(&c.q)
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// ToggleSort flips the direction when key is the active column; otherwise
// it selects key ascending. Either way the page resets to 1.
func (c *Controller) ToggleSort(ctx context.Context, key string) error {
	return c.update(ctx, func(q *model.Query) {
		if q.SortKey == key {
			q.SortDir = q.SortDir.Flip()
		} else {
			q.SortKey, q.SortDir = key, model.Asc
		}
		q.Page = 1
	})
}

// SetPage moves to page n (1-based), clamped to the known page range.
func (c *Controller) SetPage(ctx context.Context, n int) error {
	return c.update(ctx, func(q *model.Query) {
		q.Page = clamp(n, 1, max(c.totalPages, 1))
	})
}

// NextPage advances one page if there is one.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	n := c.q.Page + 1
	c.mu.Unlock()
	return c.SetPage(ctx, n)
}

// PrevPage goes back one page if possible.
func (c *Controller) PrevPage(ctx context.Context) error {
	c.mu.Lock()
	n := c.q.Page - 1
	c.mu.Unlock()
	return c.SetPage(ctx, n)
}

// SetSearch sets the search term and returns to page 1. A blank term is
// the same as ClearSearch.
func (c *Controller) SetSearch(ctx context.Context, term string) error {
	if strings.TrimSpace(term) == "" {
		term = ""
	}
	return c.update(ctx, func(q *model.Query) {
		q.Search = term
		q.Page = 1
	})
}

// ClearSearch drops the search term and shows page 1 of the listing.
func (c *Controller) ClearSearch(ctx context.Context) error {
	return c.SetSearch(ctx, "")
}

// ReplaceRow swaps in an edited product by id without refetching.
func (c *Controller) ReplaceRow(p model.Product) bool {
	c.mu.Lock()
	found := false
	for i := range c.rows {
		if c.rows[i].ID == p.ID {
			c.rows[i] = p.Clone()
			found = true
			break
		}
	}
	c.mu.Unlock()
	if found {
		c.notify()
	}
	return found
}

// RemoveRow drops a deleted product by id without refetching.
func (c *Controller) RemoveRow(id int64) bool {
	c.mu.Lock()
	found := false
	for i := range c.rows {
		if c.rows[i].ID == id {
			c.rows = append(c.rows[:i:i], c.rows[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if found {
		c.notify()
	}
	return found
}

// AppendRow adds a newly created product to the displayed rows.
func (c *Controller) AppendRow(p model.Product) {
	c.mu.Lock()
	c.rows = append(c.rows, p.Clone())
	c.mu.Unlock()
	c.notify()
}

// CanEdit reports whether edit affordances should be shown. This is a
// display gate only; the server enforces access.
func (c *Controller) CanEdit() bool { return c.roles != nil && c.roles.IsAdmin() }

// CanDelete mirrors CanEdit.
func (c *Controller) CanDelete() bool { return c.CanEdit() }

func (c *Controller) notify() {
	c.mu.Lock()
	st := c.snapshotLocked()
	fns := slices.Clone(c.subs)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
