package siteclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
)

// PostView is a single post with its content rendered to sanitized HTML.
type PostView struct {
	Post        sitecontent.BlogPost `json:"post"`
	ContentHTML string               `json:"contentHtml"`
}

func (c *Client) fetchPosts(ctx context.Context) ([]sitecontent.BlogPost, error) {
	var out struct {
		Posts []sitecontent.BlogPost `json:"posts"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/posts"}, &out); err != nil {
		return nil, err
	}
	if out.Posts == nil {
		out.Posts = []sitecontent.BlogPost{}
	}
	saveSnapshot(c, fallbackPostsKey, out.Posts)
	return out.Posts, nil
}

// Posts returns every post, newest first. Concurrent callers share one fetch.
func (c *Client) Posts(ctx context.Context) ([]sitecontent.BlogPost, error) {
	return c.posts.get(ctx, c.fetchPosts)
}

// RefreshPosts drops the cached list, fetches it again and notifies post
// subscribers.
func (c *Client) RefreshPosts(ctx context.Context) ([]sitecontent.BlogPost, error) {
	c.posts.invalidate()
	posts, err := c.Posts(ctx)
	if err != nil {
		return nil, err
	}
	c.posts.subs.notify(posts)
	return posts, nil
}

func (c *Client) SubscribePosts(fn func([]sitecontent.BlogPost)) (cancel func()) {
	return c.posts.subs.add(fn)
}

// Post fetches one post with its rendered HTML. It is not cached.
func (c *Client) Post(ctx context.Context, id string) (PostView, error) {
	var view PostView
	err := c.do(ctx, request{method: http.MethodGet, path: "/posts/" + url.PathEscape(id)}, &view)
	return view, err
}

// SavePost validates p, upserts it and refreshes the post list. The returned
// post carries the id the server assigned when p.ID was empty.
func (c *Client) SavePost(ctx context.Context, p sitecontent.BlogPost) (sitecontent.BlogPost, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return p, err
	}
	var out struct {
		Post sitecontent.BlogPost `json:"post"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/posts",
		body:   map[string]any{"post": p},
		auth:   true,
	}, &out)
	if err != nil {
		return p, err
	}
	c.afterPostWrite(ctx)
	return out.Post, nil
}

// DeletePost removes the post with id. Deleting an unknown id succeeds.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/posts/delete",
		body:   map[string]string{"id": id},
		auth:   true,
	}, nil)
	if err != nil {
		return err
	}
	c.afterPostWrite(ctx)
	return nil
}

func (c *Client) afterPostWrite(ctx context.Context) {
	if _, err := c.RefreshPosts(ctx); err != nil {
		c.log.Warn("post saved but refresh failed", "error", err)
	}
}
