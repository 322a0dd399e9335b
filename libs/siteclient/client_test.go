package siteclient

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://bad")
	assert.Error(t, err)
}

func TestConcurrentContentReadsShareOneRequest(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("Qualify Your Target Companies at Scale"))
	api.release = make(chan struct{})
	c := newTestClient(t, api)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]sitecontent.ContentDocument, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Content(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return api.contentGets.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(api.release)
	wg.Wait()

	assert.EqualValues(t, 1, api.contentGets.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "Qualify Your Target Companies at Scale", results[i].Hero.Headline)
	}

	_, err := c.Content(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, api.contentGets.Load(), "cached value must be served without a request")
}

func TestFailedFetchIsNotCached(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("live"))
	api.failGets = true
	c := newTestClient(t, api)

	_, err := c.Content(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)

	api.mu.Lock()
	api.failGets = false
	api.mu.Unlock()

	doc, err := c.Content(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live", doc.Hero.Headline)
	assert.EqualValues(t, 2, api.contentGets.Load())
}

func TestContentNotFound(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)

	_, err := c.Content(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("live"))
	api.release = make(chan struct{})
	c := newTestClient(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Content(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return api.contentGets.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(api.release)
	require.Eventually(t, func() bool {
		_, ok := c.content.cached()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	doc, err := c.Content(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live", doc.Hero.Headline)
	assert.EqualValues(t, 1, api.contentGets.Load())
}

func TestRefreshRevalidatesWithETag(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("live"))
	c := newTestClient(t, api)

	_, err := c.Content(context.Background())
	require.NoError(t, err)

	var notified []string
	cancel := c.SubscribeContent(func(doc sitecontent.ContentDocument) { notified = append(notified, doc.Hero.Headline) })
	defer cancel()

	doc, err := c.RefreshContent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live", doc.Hero.Headline)
	assert.EqualValues(t, 2, api.contentGets.Load())
	assert.EqualValues(t, 1, api.notModified.Load(), "refresh should revalidate the cached response")
	assert.Equal(t, []string{"live"}, notified)
}

func TestLoginStoresTokenAndLogoutClearsState(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("live"))
	tokens := &FileTokenStore{Path: filepath.Join(t.TempDir(), "auth", "token")}
	c := newTestClient(t, api, WithTokenStore(tokens))

	err := c.Login(context.Background(), testEmail, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, c.LoggedIn())

	require.NoError(t, c.Login(context.Background(), testEmail, testPassword))
	assert.True(t, c.LoggedIn())
	stored, err := tokens.Token()
	require.NoError(t, err)
	assert.Equal(t, testToken, stored)

	session, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testEmail, session.Email)
	assert.Equal(t, "admin-1", session.Subject)

	_, err = c.Content(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Logout())
	assert.False(t, c.LoggedIn())
	_, ok := c.content.cached()
	assert.False(t, ok, "logout must drop cached content")

	_, err = c.Session(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRejectedTokenIsCleared(t *testing.T) {
	api := newFakeAPI(t)
	tokens := &MemoryTokenStore{}
	require.NoError(t, tokens.SetToken("expired-token"))
	c := newTestClient(t, api, WithTokenStore(tokens))

	err := c.SaveContent(context.Background(), fullDoc("x"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, c.LoggedIn())
	_, ok := api.currentDoc()
	assert.False(t, ok)
}

func TestSaveContentRequiresLogin(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)

	err := c.SaveContent(context.Background(), fullDoc("x"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 0, api.contentSaves.Load())
}

func TestSaveContentUpdatesCacheAndNotifies(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("before"))
	c := newTestClient(t, api)
	require.NoError(t, c.Login(context.Background(), testEmail, testPassword))

	_, err := c.Content(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []sitecontent.ContentDocument
	cancel := c.SubscribeContent(func(doc sitecontent.ContentDocument) {
		mu.Lock()
		seen = append(seen, doc)
		mu.Unlock()
	})

	patch := sitecontent.ContentDocument{Hero: &sitecontent.HeroSection{Headline: "after"}}
	require.NoError(t, c.SaveContent(context.Background(), patch))

	cached, ok := c.content.cached()
	require.True(t, ok)
	assert.Equal(t, "after", cached.Hero.Headline)
	require.NotNil(t, cached.Footer, "sections missing from the save stay cached")
	assert.Equal(t, "support@exeract.com", cached.Footer.Email)

	mu.Lock()
	require.Len(t, seen, 1)
	assert.Equal(t, "after", seen[0].Hero.Headline)
	mu.Unlock()

	cancel()
	cancel()
	require.NoError(t, c.SaveContent(context.Background(), sitecontent.ContentDocument{Hero: &sitecontent.HeroSection{Headline: "again"}}))
	mu.Lock()
	assert.Len(t, seen, 1, "no notification after cancel")
	mu.Unlock()

	gets := api.contentGets.Load()
	doc, err := c.Content(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "again", doc.Hero.Headline)
	assert.Equal(t, gets, api.contentGets.Load())
}

func TestPartialSaveWithoutCacheRefetches(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("before"))
	c := newTestClient(t, api)
	require.NoError(t, c.Login(context.Background(), testEmail, testPassword))

	patch := sitecontent.ContentDocument{Footer: &sitecontent.FooterSection{Description: "d", Email: "new@exeract.com"}}
	require.NoError(t, c.SaveContent(context.Background(), patch))

	cached, ok := c.content.cached()
	require.True(t, ok)
	assert.Equal(t, "before", cached.Hero.Headline)
	assert.Equal(t, "new@exeract.com", cached.Footer.Email)
	assert.EqualValues(t, 1, api.contentGets.Load())
}

func TestSaveContentIfUnchanged(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("v1"))
	c := newTestClient(t, api)
	require.NoError(t, c.Login(context.Background(), testEmail, testPassword))

	base, err := c.Content(context.Background())
	require.NoError(t, err)

	api.setDoc(fullDoc("edited elsewhere"))
	err = c.SaveContentIfUnchanged(context.Background(), base, fullDoc("mine"))
	assert.ErrorIs(t, err, ErrConflict)
	cached, _ := c.content.cached()
	assert.Equal(t, "v1", cached.Hero.Headline, "failed save leaves the cache alone")

	fresh, err := c.RefreshContent(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.SaveContentIfUnchanged(context.Background(), fresh, fullDoc("mine")))
	doc, _ := api.currentDoc()
	assert.Equal(t, "mine", doc.Hero.Headline)
}

func TestFallbackSnapshots(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("persisted"))
	c := newTestClient(t, api, WithFallbackStore(DirFallbackStore{Dir: t.TempDir()}))

	_, err := c.LastKnownContent()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = c.Content(context.Background())
	require.NoError(t, err)

	api.mu.Lock()
	api.failGets = true
	api.mu.Unlock()
	_, err = c.RefreshContent(context.Background())
	require.Error(t, err)

	snap, err := c.LastKnownContent()
	require.NoError(t, err)
	assert.Equal(t, "persisted", snap.Value.Hero.Headline)
	assert.False(t, snap.SavedAt.IsZero())

	_, err = c.LastKnownPosts()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	noFallback := newTestClient(t, api)
	_, err = noFallback.LastKnownContent()
	assert.True(t, errors.Is(err, ErrNoSnapshot))
}

func TestMemoryFallbackStoreCopies(t *testing.T) {
	var s MemoryFallbackStore
	data := []byte("abc")
	require.NoError(t, s.Save("k", data))
	data[0] = 'x'
	got, err := s.Load("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	_, err = s.Load("missing")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestEditingReturnedDocumentLeavesCacheAlone(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("stored"))
	c := newTestClient(t, api)

	draft, err := c.Content(context.Background())
	require.NoError(t, err)
	draft.Hero.Headline = "unsaved edit"
	draft.Hero.TrustBadges = append(draft.Hero.TrustBadges[:0], "unsaved badge")

	// not logged in, so the save fails and the draft stays with the caller
	require.ErrorIs(t, c.SaveContent(context.Background(), draft), ErrUnauthorized)

	doc, err := c.Content(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", doc.Hero.Headline)
	assert.Equal(t, fullDoc("stored").Hero.TrustBadges, doc.Hero.TrustBadges)
	assert.EqualValues(t, 1, api.contentGets.Load())
}

func TestSavedDocumentIsCopiedIntoCache(t *testing.T) {
	api := newFakeAPI(t)
	api.setDoc(fullDoc("before"))
	c := newTestClient(t, api)
	require.NoError(t, c.Login(context.Background(), testEmail, testPassword))

	var seen sitecontent.ContentDocument
	cancel := c.SubscribeContent(func(doc sitecontent.ContentDocument) {
		seen = doc
		doc.Hero.Headline = "changed by subscriber"
	})
	defer cancel()

	draft := fullDoc("saved")
	require.NoError(t, c.SaveContent(context.Background(), draft))
	draft.Hero.Headline = "edited after save"

	doc, err := c.Content(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "saved", doc.Hero.Headline)
	require.NotNil(t, seen.Hero)
	assert.Equal(t, "changed by subscriber", seen.Hero.Headline)
}
