package siteclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"github.com/gorilla/websocket"
)

const (
	testEmail    = "admin@exeract.com"
	testPassword = "s3cret"
	testToken    = "good-token"
)

// fakeAPI implements the endpoints the client uses on a plain ServeMux.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	doc      *sitecontent.ContentDocument
	posts    []sitecontent.BlogPost
	nextID   int
	failGets bool
	release  chan struct{}
	conns    []*websocket.Conn

	contentGets  atomic.Int32
	notModified  atomic.Int32
	contentSaves atomic.Int32
	postWrites   atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", api.login)
	mux.HandleFunc("GET /api/v1/auth/session", api.authed(api.session))
	mux.HandleFunc("GET /api/v1/content", api.getContent)
	mux.HandleFunc("POST /api/v1/content", api.authed(api.saveContent))
	mux.HandleFunc("GET /api/v1/posts", api.listPosts)
	mux.HandleFunc("GET /api/v1/posts/{id}", api.getPost)
	mux.HandleFunc("POST /api/v1/posts", api.authed(api.savePost))
	mux.HandleFunc("POST /api/v1/posts/delete", api.authed(api.deletePost))
	mux.HandleFunc("GET /api/v1/events", api.events)
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func (api *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeErr(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		next(w, r)
	}
}

func (api *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Email != testEmail || body.Password != testPassword {
		writeErr(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": testToken})
}

func (api *fakeAPI) session(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"sub": "admin-1", "email": testEmail, "role": "admin", "expiresAt": "2026-10-26T00:00:00Z"})
}

func (api *fakeAPI) setDoc(doc sitecontent.ContentDocument) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.doc = &doc
}

func (api *fakeAPI) currentDoc() (sitecontent.ContentDocument, bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.doc == nil {
		return sitecontent.ContentDocument{}, false
	}
	return *api.doc, true
}

func (api *fakeAPI) getContent(w http.ResponseWriter, r *http.Request) {
	api.contentGets.Add(1)
	api.mu.Lock()
	release, fail := api.release, api.failGets
	api.mu.Unlock()
	if release != nil {
		<-release
	}
	if fail {
		writeErr(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	doc, ok := api.currentDoc()
	if !ok {
		writeErr(w, http.StatusNotFound, "not_found", "Content not found")
		return
	}
	etag := doc.ETag()
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		api.notModified.Add(1)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": doc})
}

func (api *fakeAPI) saveContent(w http.ResponseWriter, r *http.Request) {
	api.contentSaves.Add(1)
	var body struct {
		Content *sitecontent.ContentDocument `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == nil {
		writeErr(w, http.StatusBadRequest, "invalid_content", "Invalid content")
		return
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" {
		if api.doc == nil || api.doc.ETag() != ifMatch {
			writeErr(w, http.StatusConflict, "conflict", "Content was changed by someone else")
			return
		}
	}
	merged := *body.Content
	if api.doc != nil {
		merged = api.doc.Merge(*body.Content)
	}
	api.doc = &merged
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (api *fakeAPI) listPosts(w http.ResponseWriter, _ *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()
	out := make([]sitecontent.BlogPost, 0, len(api.posts))
	for i := len(api.posts) - 1; i >= 0; i-- {
		out = append(out, api.posts[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": out})
}

func (api *fakeAPI) getPost(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()
	for _, p := range api.posts {
		if p.ID == r.PathValue("id") {
			writeJSON(w, http.StatusOK, map[string]any{"post": p, "contentHtml": "<p>" + p.Content + "</p>"})
			return
		}
	}
	writeErr(w, http.StatusNotFound, "not_found", "Blog post not found")
}

func (api *fakeAPI) savePost(w http.ResponseWriter, r *http.Request) {
	api.postWrites.Add(1)
	var body struct {
		Post *sitecontent.BlogPost `json:"post"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Post == nil {
		writeErr(w, http.StatusBadRequest, "invalid_post", "Invalid post")
		return
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	p := *body.Post
	if p.ID == "" {
		api.nextID++
		p.ID = fmt.Sprintf("generated-%d", api.nextID)
	}
	for i := range api.posts {
		if api.posts[i].ID == p.ID {
			api.posts[i] = p
			writeJSON(w, http.StatusOK, map[string]any{"post": p})
			return
		}
	}
	api.posts = append(api.posts, p)
	writeJSON(w, http.StatusOK, map[string]any{"post": p})
}

func (api *fakeAPI) deletePost(w http.ResponseWriter, r *http.Request) {
	api.postWrites.Add(1)
	var body struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	api.mu.Lock()
	defer api.mu.Unlock()
	kept := api.posts[:0]
	for _, p := range api.posts {
		if p.ID != body.ID {
			kept = append(kept, p)
		}
	}
	api.posts = kept
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

var upgrader = websocket.Upgrader{}

func (api *fakeAPI) events(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	api.mu.Lock()
	api.conns = append(api.conns, conn)
	api.mu.Unlock()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (api *fakeAPI) watchers() int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return len(api.conns)
}

func (api *fakeAPI) publish(t *testing.T, event sitecontent.Event) {
	t.Helper()
	api.mu.Lock()
	defer api.mu.Unlock()
	for _, conn := range api.conns {
		if err := conn.WriteJSON(event); err != nil {
			t.Fatalf("publish event: %v", err)
		}
	}
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	c, err := New(api.URL+"/", opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func fullDoc(headline string) sitecontent.ContentDocument {
	return sitecontent.ContentDocument{
		Hero:       &sitecontent.HeroSection{Headline: headline, TrustBadges: []string{"No credit card required"}},
		HowItWorks: &sitecontent.HowItWorksSection{},
		Features:   &sitecontent.FeaturesSection{},
		Pricing:    &sitecontent.PricingSection{},
		Footer:     &sitecontent.FooterSection{Description: "footer", Email: "support@exeract.com"},
	}
}

func validPost(title string) sitecontent.BlogPost {
	return sitecontent.BlogPost{
		Title:    title,
		Excerpt:  strings.Repeat("e", 20),
		Content:  "body",
		Image:    "https://images.example/p.jpg",
		Author:   "Team",
		Category: sitecontent.DefaultCategory,
	}
}
