package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/omelentjeff/product-management-app/internal/draft"
	"github.com/omelentjeff/product-management-app/internal/listctl"
	"github.com/omelentjeff/product-management-app/internal/model"
	"github.com/omelentjeff/product-management-app/internal/suggest"
)

// sortKeys are the columns the server sorts by.
var sortKeys = []string{"id", "name", "manufacturer", "weight", "gtin"}

const browseHelp = `commands:
  n | p                 next / previous page
  page N                jump to page N
  sort KEY              sort by KEY, again to flip direction
  search TERM           show products matching TERM
  type TEXT             type into the search box, suggestions follow
  pick N                use suggestion N as the search term
  clear                 drop the search term
  add k=v ...           create a product (admin)
  edit ID k=v ...       edit a product (admin)
  rm ID                 delete a product (admin)
  r                     reload the current page
  h                     this help
  q                     quit
values with spaces go in double quotes: add name="Oat milk"`

type browseOp int

const (
	opShow browseOp = iota
	opNext
	opPrev
	opPage
	opSort
	opSearch
	opType
	opPick
	opClear
	opAdd
	opEdit
	opRemove
	opRefresh
	opHelp
	opQuit
)

type browseCmd struct {
	op   browseOp
	n    int
	arg  string
	sets []string
}

// splitFields splits on spaces; double quotes group, and are dropped.
func splitFields(line string) ([]string, error) {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
		inTok  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inTok = true
		case (r == ' ' || r == '\t') && !quoted:
			if inTok {
				out = append(out, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if inTok {
		out = append(out, cur.String())
	}
	return out, nil
}

func parseBrowseLine(line string) (browseCmd, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return browseCmd{op: opShow}, nil
	}
	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	needN := func(op browseOp) (browseCmd, error) {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return browseCmd{}, fmt.Errorf("%s: want a number, got %q", head, rest)
		}
		return browseCmd{op: op, n: n}, nil
	}
	needArg := func(op browseOp) (browseCmd, error) {
		if rest == "" {
			return browseCmd{}, fmt.Errorf("%s: missing argument", head)
		}
		return browseCmd{op: op, arg: rest}, nil
	}

	switch strings.ToLower(head) {
	case "n", "next":
		return browseCmd{op: opNext}, nil
	case "p", "prev":
		return browseCmd{op: opPrev}, nil
	case "page":
		return needN(opPage)
	case "pick":
		return needN(opPick)
	case "rm", "delete":
		return needN(opRemove)
	case "sort":
		return needArg(opSort)
	case "search":
		return needArg(opSearch)
	case "type":
		// empty text is a valid keystroke: it closes the dropdown
		return browseCmd{op: opType, arg: rest}, nil
	case "clear":
		return browseCmd{op: opClear}, nil
	case "add":
		sets, err := splitFields(rest)
		if err != nil {
			return browseCmd{}, err
		}
		return browseCmd{op: opAdd, sets: sets}, nil
	case "edit":
		fields, err := splitFields(rest)
		if err != nil {
			return browseCmd{}, err
		}
		if len(fields) < 2 {
			return browseCmd{}, errors.New("edit: want ID and at least one field=value")
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return browseCmd{}, fmt.Errorf("edit: invalid id %q", fields[0])
		}
		return browseCmd{op: opEdit, n: n, sets: fields[1:]}, nil
	case "r", "reload", "refresh":
		return browseCmd{op: opRefresh}, nil
	case "h", "help", "?":
		return browseCmd{op: opHelp}, nil
	case "q", "quit", "exit":
		return browseCmd{op: opQuit}, nil
	}
	return browseCmd{}, fmt.Errorf("unknown command %q, h for help", head)
}

// resolveSortKey accepts a sort column or an abbreviation of one.
func resolveSortKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, k := range sortKeys {
		if k == key {
			return k, nil
		}
	}
	ranks := fuzzy.RankFindFold(key, sortKeys)
	if len(ranks) == 0 {
		return "", fmt.Errorf("unknown sort key %q", key)
	}
	sort.Sort(ranks)
	return ranks[0].Target, nil
}

// browser is the interactive table: a list controller plus a search box.
type browser struct {
	a  *app
	lc *listctl.Controller
	sc *suggest.Controller

	mu  sync.Mutex
	out io.Writer
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Page, sort and search products interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.browse(cmd.Context())
		},
	}
}

func (a *app) browse(ctx context.Context) error {
	b := &browser{a: a, out: a.out}
	b.lc = listctl.New(a.api, a.sess, listctl.Options{
		PageSize: a.cfg.List.PageSize,
		SortKey:  a.cfg.List.SortKey(),
		SortDir:  a.cfg.List.SortDir(),
		Logger:   a.log.Named("list"),
	})
	b.sc = suggest.New(a.api, suggest.Options{
		Delay:  a.cfg.Suggest.Delay,
		Limit:  a.cfg.Suggest.Limit,
		Logger: a.log.Named("suggest"),
		OnSearch: func(term string) {
			b.report(b.lc.SetSearch(ctx, term))
			b.renderTable()
		},
		OnChange: b.renderSuggestions,
	})
	defer b.sc.Close()

	b.report(b.lc.Refresh(ctx))
	b.renderTable()

	prompt := interactive(a.in)
	sc := bufio.NewScanner(a.in)
	for {
		if prompt {
			b.printf("> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cmd, err := parseBrowseLine(sc.Text())
		if err != nil {
			b.printf("%v\n", err)
			continue
		}
		if cmd.op == opQuit {
			return nil
		}
		b.exec(ctx, cmd)
	}
}

func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (b *browser) exec(ctx context.Context, cmd browseCmd) {
	switch cmd.op {
	case opShow:
		b.renderTable()
	case opNext:
		b.report(b.lc.NextPage(ctx))
		b.renderTable()
	case opPrev:
		b.report(b.lc.PrevPage(ctx))
		b.renderTable()
	case opPage:
		b.report(b.lc.SetPage(ctx, cmd.n))
		b.renderTable()
	case opSort:
		key, err := resolveSortKey(cmd.arg)
		if err != nil {
			b.report(err)
			return
		}
		b.report(b.lc.ToggleSort(ctx, key))
		b.renderTable()
	case opSearch:
		b.sc.Select(cmd.arg)
	case opType:
		b.sc.Input(cmd.arg)
	case opPick:
		st := b.sc.State()
		if !st.Open || cmd.n < 1 || cmd.n > len(st.Suggestions) {
			b.printf("no suggestion %d\n", cmd.n)
			return
		}
		b.sc.Select(st.Suggestions[cmd.n-1])
	case opClear:
		b.sc.Clear()
	case opAdd:
		b.add(ctx, cmd.sets)
	case opEdit:
		b.edit(ctx, int64(cmd.n), cmd.sets)
	case opRemove:
		b.remove(ctx, int64(cmd.n))
	case opRefresh:
		b.report(b.lc.Refresh(ctx))
		b.renderTable()
	case opHelp:
		b.printf("%s\n", browseHelp)
	}
}

func applySets(d *draft.Draft, sets []string) error {
	for _, kv := range sets {
		k, v, ok := cutSet(kv)
		if !ok {
			return fmt.Errorf("invalid field %q, want field=value", kv)
		}
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *browser) add(ctx context.Context, sets []string) {
	if !b.lc.CanEdit() {
		b.printf("admin role required\n")
		return
	}
	d := draft.Empty()
	if err := applySets(d, sets); err != nil {
		b.report(err)
		return
	}
	p, err := b.a.api.Create(ctx, d.Input(), nil)
	if err != nil {
		b.reportDraft(d, err)
		return
	}
	b.lc.AppendRow(p)
	b.printf("created %d\n", p.ID)
	b.renderTable()
}

func (b *browser) edit(ctx context.Context, id int64, sets []string) {
	if !b.lc.CanEdit() {
		b.printf("admin role required\n")
		return
	}
	cur, ok := b.row(id)
	if !ok {
		b.printf("product %d is not on this page\n", id)
		return
	}
	d := draft.FromProduct(cur)
	if err := applySets(d, sets); err != nil {
		b.report(err)
		return
	}
	if !d.Dirty() {
		b.printf("nothing to update\n")
		return
	}
	p, err := b.a.api.Update(ctx, id, d.Input(), nil)
	if err != nil {
		b.reportDraft(d, err)
		return
	}
	b.lc.ReplaceRow(p)
	b.renderTable()
}

func (b *browser) remove(ctx context.Context, id int64) {
	if !b.lc.CanDelete() {
		b.printf("admin role required\n")
		return
	}
	if err := b.a.api.Delete(ctx, id); err != nil {
		b.report(err)
		return
	}
	b.lc.RemoveRow(id)
	b.printf("deleted %d\n", id)
	b.renderTable()
}

func (b *browser) row(id int64) (model.Product, bool) {
	for _, p := range b.lc.Snapshot().Rows {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (b *browser) reportDraft(d *draft.Draft, err error) {
	if !d.ApplyErrors(err) {
		b.report(err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fail(b.out, err)
	for _, s := range d.SectionErrors() {
		fmt.Fprintf(b.out, "%s: check highlighted fields\n", s)
	}
}

func (b *browser) report(err error) {
	if err == nil || errors.Is(err, listctl.ErrSuperseded) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fail(b.out, err)
}

func (b *browser) printf(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, format, args...)
}

func (b *browser) renderTable() {
	st := b.lc.Snapshot()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(st.Rows) == 0 {
		fmt.Fprintln(b.out, "no products")
	} else {
		printTable(b.out, st.Rows)
	}
	line := fmt.Sprintf("page %d of %d, sort %s", st.Query.Page, max(st.TotalPages, 1), st.Query.SortParam())
	if st.Query.Search != "" {
		line += fmt.Sprintf(", search %q", st.Query.Search)
	}
	fmt.Fprintln(b.out, line)
}

func (b *browser) renderSuggestions(st suggest.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st.Err != nil {
		fmt.Fprintf(b.out, "suggestions unavailable: %v\n", st.Err)
		return
	}
	if !st.Open {
		return
	}
	fmt.Fprintf(b.out, "suggestions for %q:\n", st.Input)
	for i, s := range st.Suggestions {
		fmt.Fprintf(b.out, "  %d) %s\n", i+1, s)
	}
}
