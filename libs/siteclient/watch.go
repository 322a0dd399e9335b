package siteclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"github.com/gorilla/websocket"
)

const watchHandshakeTimeout = 10 * time.Second

func (c *Client) eventsURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + "/events"
	return u.String()
}

// Watch follows the API's update stream and refreshes the matching cache for
// every event, so subscribers see writes made by other clients. It blocks
// until ctx is done or the stream breaks; callers decide whether to redial.
func (c *Client) Watch(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: watchHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.eventsURL(), nil)
	if err != nil {
		return fmt.Errorf("siteclient: dial events: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var event sitecontent.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("siteclient: read event: %w", err)
		}
		c.log.Debug("event received", "type", event.Type, "post_id", event.PostID)
		c.handleEvent(ctx, event)
	}
}

func (c *Client) handleEvent(ctx context.Context, event sitecontent.Event) {
	var err error
	switch event.Type {
	case sitecontent.EventContentUpdated:
		_, err = c.RefreshContent(ctx)
	case sitecontent.EventPostsUpdated:
		_, err = c.RefreshPosts(ctx)
	default:
		return
	}
	if err != nil {
		c.log.Warn("refresh after event failed", "type", event.Type, "error", err)
	}
}
