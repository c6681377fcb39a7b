// Package console is a line-oriented presenter for the list, add and search
// screens. It renders states and single events as text and turns typed
// commands into intents.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"user-mvi/internal/mvi"
	"user-mvi/internal/screen/add"
	"user-mvi/internal/screen/list"
	"user-mvi/internal/screen/search"
)

// Usecase is everything the three screens need.
type Usecase interface {
	list.Usecase
	add.Usecase
	search.Usecase
}

type screen int

const (
	listScreen screen = iota
	addScreen
	searchScreen
)

const help = `commands:
  list screen:   refresh | retry | rm <n> | add | search [query] | quit
  add screen:    email <v> | first <v> | last <v> | submit | back
  search screen: search <query> | retry | back`

// Console drives the screens from text input. Run owns it; it is not safe
// for concurrent use.
type Console struct {
	uc       Usecase
	debounce time.Duration
	log      *zap.Logger

	mu  sync.Mutex
	out io.Writer

	g       *errgroup.Group
	ctx     context.Context
	actions chan func()

	current screen
	list    *list.Store
	add     *add.Store
	search  *search.Store
	query   string
}

// New creates a console writing to out.
func New(uc Usecase, debounce time.Duration, out io.Writer, log *zap.Logger) *Console {
	return &Console{
		uc:       uc,
		debounce: debounce,
		log:      log.Named("console"),
		out:      out,
		actions:  make(chan func()),
	}
}

// Run reads commands from in until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	c.g, c.ctx = g, gctx

	// a blocked read cannot be interrupted, so the reader stays outside the group
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-gctx.Done():
				return
			}
		}
	}()

	c.list = list.NewStore(c.uc, c.log)
	c.list.Subscribe(c.renderList)
	collect(c, c.list.SingleEvent(), c.onListEvent)
	c.list.ProcessIntent(list.Initial{})
	c.println(help)

	g.Go(func() error {
		defer c.closeAll()
		defer cancel()

		for {
			select {
			case <-gctx.Done():
				return nil
			case fn := <-c.actions:
				fn()
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if !c.exec(strings.TrimSpace(line)) {
					return nil
				}
			}
		}
	})

	return g.Wait()
}

// exec runs one command and reports whether to keep going.
func (c *Console) exec(line string) bool {
	if line == "" {
		return true
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		c.println(help)
		return true
	}

	switch c.current {
	case listScreen:
		c.execList(cmd, arg)
	case addScreen:
		c.execAdd(cmd, arg)
	case searchScreen:
		c.execSearch(cmd, arg)
	}
	return true
}

func (c *Console) execList(cmd, arg string) {
	switch cmd {
	case "refresh":
		c.list.ProcessIntent(list.Refresh{})
	case "retry":
		c.list.ProcessIntent(list.Retry{})
	case "rm":
		items := c.list.State().Items
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(items) {
			c.printf("no user #%s\n", arg)
			return
		}
		c.list.ProcessIntent(list.RemoveUser{User: items[n-1]})
	case "add":
		c.openAdd()
	case "search":
		c.openSearch(arg)
	default:
		c.printf("unknown command %q, type help\n", cmd)
	}
}

func (c *Console) execAdd(cmd, arg string) {
	switch cmd {
	case "email":
		c.add.ProcessIntent(add.EmailChanged{Email: arg})
	case "first":
		c.add.ProcessIntent(add.FirstNameChanged{FirstName: arg})
	case "last":
		c.add.ProcessIntent(add.LastNameChanged{LastName: arg})
	case "submit":
		c.add.ProcessIntent(add.Submit{})
	case "back":
		c.closeAdd()
	default:
		c.printf("unknown command %q, type help\n", cmd)
	}
}

func (c *Console) execSearch(cmd, arg string) {
	switch cmd {
	case "search", "s":
		c.search.ProcessIntent(search.Search{Query: arg})
	case "retry":
		c.search.ProcessIntent(search.Retry{})
	case "back":
		c.closeSearch()
	default:
		c.printf("unknown command %q, type help\n", cmd)
	}
}

func (c *Console) openAdd() {
	c.println("== add user ==")
	st := add.NewStore(c.uc, c.log)
	st.Subscribe(c.renderAdd)
	collect(c, st.SingleEvent(), func(e add.SingleEvent) { c.onAddEvent(st, e) })
	c.add = st
	c.current = addScreen
}

func (c *Console) closeAdd() {
	if c.add == nil {
		return
	}
	c.add.Close()
	c.add = nil
	c.showList()
}

// openSearch restores the last query the search screen had.
func (c *Console) openSearch(query string) {
	c.println("== search ==")
	c.search = search.NewStore(c.uc, c.query, c.debounce, c.log)
	c.search.Subscribe(c.renderSearch)
	collect(c, c.search.SingleEvent(), c.onSearchEvent)
	c.current = searchScreen
	if query != "" {
		c.search.ProcessIntent(search.Search{Query: query})
	}
}

func (c *Console) closeSearch() {
	if c.search == nil {
		return
	}
	c.query = c.search.State().OriginalQuery
	c.search.Close()
	c.search = nil
	c.showList()
}

func (c *Console) showList() {
	c.current = listScreen
	c.println("== users ==")
	c.renderList(c.list.State())
}

func (c *Console) closeAll() {
	c.closeAdd()
	c.closeSearch()
	c.list.Close()
}

// post runs fn on the command loop.
func (c *Console) post(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.ctx.Done():
	}
}

// collect consumes ch on the group until the screen closes it.
func collect[E any](c *Console, ch *mvi.EventChannel[E], fn func(E)) {
	c.g.Go(func() error {
		err := ch.Collect(c.ctx, fn)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

func (c *Console) onListEvent(e list.SingleEvent) {
	switch e := e.(type) {
	case list.GetUsersError:
		c.printf("! failed to load users: %s\n", e.Err.Message())
	case list.RefreshSucceeded:
		c.println("! refreshed")
	case list.RefreshFailed:
		c.printf("! refresh failed: %s\n", e.Err.Message())
	case list.RemoveUserSucceeded:
		c.printf("! removed %s\n", e.User.FullName())
	case list.RemoveUserFailed:
		c.printf("! failed to remove %s: %s\n", e.User.FullName(), e.Err.Message())
	}
}

// onAddEvent leaves the add screen st once its user is added.
func (c *Console) onAddEvent(st *add.Store, e add.SingleEvent) {
	switch e := e.(type) {
	case add.AddUserSucceeded:
		c.printf("! added %s\n", e.User.FullName())
		c.post(func() {
			if c.add == st {
				c.closeAdd()
			}
		})
	case add.AddUserFailed:
		c.printf("! failed to add %s: %s\n", e.User.Email.String(), e.Err.Message())
	}
}

func (c *Console) onSearchEvent(e search.SingleEvent) {
	if e, ok := e.(search.SearchFailed); ok {
		c.printf("! search failed: %s\n", e.Err.Message())
	}
}

func (c *Console) renderList(s list.ViewState) {
	var b strings.Builder
	switch {
	case s.IsLoading:
		b.WriteString("[users] loading...\n")
	case s.Error != nil:
		fmt.Fprintf(&b, "[users] %s, type retry\n", s.Error.Message())
	default:
		fmt.Fprintf(&b, "[users] %d user(s)", len(s.Items))
		if s.IsRefreshing {
			b.WriteString(", refreshing")
		}
		b.WriteString("\n")
		for i, it := range s.Items {
			fmt.Fprintf(&b, "  %d. %s <%s>", i+1, it.FullName(), it.Email)
			if it.IsDeleting {
				b.WriteString(" (removing)")
			}
			b.WriteString("\n")
		}
	}
	c.write(b.String())
}

func (c *Console) renderAdd(s add.ViewState) {
	var b strings.Builder
	b.WriteString("[add]")
	for _, f := range []add.Field{add.EmailField, add.FirstNameField, add.LastNameField} {
		fmt.Fprintf(&b, " %s=%q", f, s.Value(f))
		if s.ShowError(f) {
			b.WriteString("(!)")
		}
	}
	if s.IsLoading {
		b.WriteString(" adding...")
	}
	b.WriteString("\n")
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	c.write(b.String())
}

func (c *Console) renderSearch(s search.ViewState) {
	var b strings.Builder
	fmt.Fprintf(&b, "[search %q]", s.OriginalQuery)
	switch {
	case s.IsLoading:
		b.WriteString(" searching...\n")
	case s.Error != nil:
		fmt.Fprintf(&b, " %s, type retry\n", s.Error.Message())
	default:
		fmt.Fprintf(&b, " %d result(s) for %q\n", len(s.Users), s.SubmittedQuery)
		for _, u := range s.Users {
			fmt.Fprintf(&b, "  - %s <%s>\n", u.FullName, u.Email)
		}
	}
	c.write(b.String())
}

func (c *Console) printf(format string, args ...any) {
	c.write(fmt.Sprintf(format, args...))
}

func (c *Console) println(s string) {
	c.write(s + "\n")
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, s); err != nil {
		c.log.Warn("failed to write output", zap.Error(err))
	}
}
