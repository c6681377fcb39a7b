package app

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"user-mvi/internal/adapter/cache"
	"user-mvi/internal/adapter/db/sqlstore"
	"user-mvi/internal/adapter/gin/handler"
	"user-mvi/internal/adapter/gin/router"
	"user-mvi/internal/config"
	domain "user-mvi/internal/domain/user"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startUserService serves the users API over an in-memory database.
func startUserService(t *testing.T) string {
	log := zaptest.NewLogger(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := sqlstore.NewUserStore(db, log)
	require.NoError(t, store.Migrate(t.Context()))
	u, err := domain.Create("", "ada@example.com", "Ada", "Lovelace", "")
	require.NoError(t, err)
	_, err = store.Create(t.Context(), u)
	require.NoError(t, err)

	srv := httptest.NewServer(router.SetupRouter(handler.NewUserHandler(store, log), nil, log))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestApp_EndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Remote.BaseURL = startUserService(t)
	cfg.Search.Debounce = 10 * time.Millisecond
	cfg.Redis.CacheEnable = true
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mr.Port()
	require.NoError(t, cfg.Validate())

	out := &syncBuffer{}
	a, err := Wire(t.Context(), cfg, zaptest.NewLogger(t), out)
	require.NoError(t, err)
	require.NotNil(t, a.redis)
	t.Cleanup(func() { _ = a.redis.Close() })

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- a.Console.Run(t.Context(), pr) }()

	expect := func(text string) {
		t.Helper()
		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), text)
		}, 3*time.Second, 10*time.Millisecond, "output never contained %q:\n%s", text, out.String())
	}
	send := func(line string) {
		t.Helper()
		_, err := io.WriteString(pw, line+"\n")
		require.NoError(t, err)
	}

	expect("1. Ada Lovelace <ada@example.com>")
	assert.True(t, mr.Exists(cache.ListKey), "list read through the cache")

	send("add")
	send("email alan@example.com")
	send("first Alan")
	send("last Turing")
	send("submit")
	expect("! added Alan Turing")
	expect("== users ==")
	expect("2. Alan Turing <alan@example.com>")

	send("search turing")
	expect(`1 result(s) for "turing"`)
	send("back")

	send("rm 1")
	expect("! removed Ada Lovelace")

	send("quit")
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("console did not stop")
	}
}
