package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errInvalidPost = &apiError{Status: http.StatusBadRequest, Code: "invalid_post", Message: "Invalid post"}

// postsSaveHandler upserts a post by id. Posts sent without an id get a
// fresh UUID so the editor can create entries.
func (a *App) postsSaveHandler(c *gin.Context) {
	var payload struct {
		Post *sitecontent.BlogPost `json:"post"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Post == nil {
		writeAPIError(c, errInvalidPost)
		return
	}
	post := *payload.Post
	post.Normalize()
	if strings.TrimSpace(post.Title) == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_post", Message: "Post title is required"})
		return
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Date == "" {
		post.Date = sitecontent.DisplayDate(time.Now())
	}
	if post.Category == "" {
		post.Category = sitecontent.DefaultCategory
	}

	if err := a.store.SavePost(c.Request.Context(), post); err != nil {
		a.log.Error("failed to save blog post", "id", post.ID, "error", err)
		writeAPIError(c, err)
		return
	}

	a.events.Publish(sitecontent.Event{Type: sitecontent.EventPostsUpdated, PostID: post.ID, At: time.Now().UTC()})
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// postsDeleteHandler is idempotent: an unknown id still answers ok.
func (a *App) postsDeleteHandler(c *gin.Context) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || strings.TrimSpace(payload.ID) == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Post id required"})
		return
	}
	id := strings.TrimSpace(payload.ID)

	if err := a.store.DeletePost(c.Request.Context(), id); err != nil {
		a.log.Error("failed to delete blog post", "id", id, "error", err)
		writeAPIError(c, err)
		return
	}

	a.events.Publish(sitecontent.Event{Type: sitecontent.EventPostsUpdated, PostID: id, At: time.Now().UTC()})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
