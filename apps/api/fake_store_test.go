package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSigningSecret = "0123456789abcdef"

type storedPost struct {
	post sitecontent.BlogPost
	seq  int
}

// fakeStore mirrors the store contract in memory: top-level content merge,
// upsert by post id, newest-first listing and idempotent delete.
type fakeStore struct {
	mu      sync.Mutex
	admins  map[string]adminCredential
	content *sitecontent.ContentDocument
	posts   map[string]storedPost
	seq     int
	err     error
	calls   map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		admins: map[string]adminCredential{},
		posts:  map[string]storedPost{},
		calls:  map[string]int{},
	}
}

func (f *fakeStore) addAdmin(t *testing.T, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins[email] = adminCredential{ID: "admin-" + email, Email: email, PasswordHash: string(hash), Role: "admin"}
}

func (f *fakeStore) record(op string) error {
	f.calls[op]++
	return f.err
}

func (f *fakeStore) FindAdmin(ctx context.Context, email string) (*adminCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindAdmin"); err != nil {
		return nil, err
	}
	admin, ok := f.admins[email]
	if !ok {
		return nil, errNotFound
	}
	return &admin, nil
}

func (f *fakeStore) UpsertAdmin(ctx context.Context, admin adminCredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpsertAdmin"); err != nil {
		return err
	}
	if existing, ok := f.admins[admin.Email]; ok {
		admin.ID = existing.ID
	} else {
		admin.ID = "admin-" + admin.Email
	}
	f.admins[admin.Email] = admin
	return nil
}

func (f *fakeStore) GetContent(ctx context.Context) (sitecontent.ContentDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetContent"); err != nil {
		return sitecontent.ContentDocument{}, err
	}
	if f.content == nil {
		return sitecontent.ContentDocument{}, errNotFound
	}
	return *f.content, nil
}

func (f *fakeStore) SaveContent(ctx context.Context, patch sitecontent.ContentDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SaveContent"); err != nil {
		return err
	}
	var merged sitecontent.ContentDocument
	if f.content != nil {
		merged = f.content.Merge(patch)
	} else {
		merged = patch
	}
	f.content = &merged
	return nil
}

func (f *fakeStore) ListPosts(ctx context.Context) ([]sitecontent.BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListPosts"); err != nil {
		return nil, err
	}
	stored := make([]storedPost, 0, len(f.posts))
	for _, p := range f.posts {
		stored = append(stored, p)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq > stored[j].seq })
	posts := make([]sitecontent.BlogPost, 0, len(stored))
	for _, p := range stored {
		posts = append(posts, p.post)
	}
	return posts, nil
}

func (f *fakeStore) GetPost(ctx context.Context, id string) (*sitecontent.BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetPost"); err != nil {
		return nil, err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, errNotFound
	}
	return &p.post, nil
}

func (f *fakeStore) SavePost(ctx context.Context, post sitecontent.BlogPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SavePost"); err != nil {
		return err
	}
	existing, ok := f.posts[post.ID]
	if ok {
		existing.post = post
		f.posts[post.ID] = existing
		return nil
	}
	f.seq++
	f.posts[post.ID] = storedPost{post: post, seq: f.seq}
	return nil
}

func (f *fakeStore) DeletePost(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeletePost"); err != nil {
		return err
	}
	delete(f.posts, id)
	return nil
}

func (f *fakeStore) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Close"]++
	return nil
}

func newTestApp(t *testing.T) (*App, *fakeStore, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := &App{
		cfg: &Config{
			Env:              "test",
			AppSigningSecret: testSigningSecret,
			StoreTimeout:     defaultStoreTimeout,
			FunctionsPrefix:  defaultFunctionsPrefix,
		},
		log:    logger,
		store:  store,
		events: newEventHub(logger),
		render: newPostRenderer(),
	}
	return app, store, app.routes()
}

func adminToken(t *testing.T, app *App) string {
	t.Helper()
	token, err := app.createAdminToken(adminCredential{ID: "admin-1", Email: "admin@exeract.com", Role: "admin"})
	require.NoError(t, err)
	return token
}

func doRequest(router http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
