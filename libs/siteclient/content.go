package siteclient

import (
	"context"
	"net/http"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
)

func (c *Client) fetchContent(ctx context.Context) (sitecontent.ContentDocument, error) {
	var out struct {
		Content sitecontent.ContentDocument `json:"content"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/content"}, &out); err != nil {
		return sitecontent.ContentDocument{}, err
	}
	saveSnapshot(c, fallbackContentKey, out.Content)
	return out.Content, nil
}

// Content returns the landing document, fetching it at most once for any
// number of concurrent callers. A failed fetch is not cached.
func (c *Client) Content(ctx context.Context) (sitecontent.ContentDocument, error) {
	return c.content.get(ctx, c.fetchContent)
}

// RefreshContent drops the cached document, fetches it again and notifies
// content subscribers.
func (c *Client) RefreshContent(ctx context.Context) (sitecontent.ContentDocument, error) {
	c.content.invalidate()
	doc, err := c.Content(ctx)
	if err != nil {
		return doc, err
	}
	c.content.subs.notify(doc)
	return doc, nil
}

// SubscribeContent calls fn with the new document after every successful
// save or refresh. No call happens after cancel returns.
func (c *Client) SubscribeContent(fn func(sitecontent.ContentDocument)) (cancel func()) {
	return c.content.subs.add(fn)
}

// SaveContent writes doc. The server replaces only the sections present in
// doc; the cache is updated the same way before SaveContent returns. On
// error nothing cached changes.
func (c *Client) SaveContent(ctx context.Context, doc sitecontent.ContentDocument) error {
	return c.saveContent(ctx, doc, "")
}

// SaveContentIfUnchanged writes doc only if the stored document still equals
// base, typically the value the editor was opened with. Otherwise it returns
// an error matching ErrConflict.
func (c *Client) SaveContentIfUnchanged(ctx context.Context, base, doc sitecontent.ContentDocument) error {
	return c.saveContent(ctx, doc, base.ETag())
}

func (c *Client) saveContent(ctx context.Context, doc sitecontent.ContentDocument, ifMatch string) error {
	req := request{
		method: http.MethodPost,
		path:   "/content",
		body:   map[string]any{"content": doc},
		auth:   true,
	}
	if ifMatch != "" {
		req.headers = map[string]string{"If-Match": ifMatch}
	}
	if err := c.do(ctx, req, nil); err != nil {
		return err
	}

	next, known := doc, len(doc.MissingSections()) == 0
	if cached, ok := c.content.cached(); ok {
		next, known = cached.Merge(doc), true
	}
	if !known {
		// a partial save with nothing cached; the full document has to come
		// from the server
		if _, err := c.RefreshContent(ctx); err != nil {
			c.log.Warn("content saved but refresh failed", "error", err)
		}
		return nil
	}
	c.content.set(next)
	saveSnapshot(c, fallbackContentKey, next)
	c.content.subs.notify(next)
	return nil
}
