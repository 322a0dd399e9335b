package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (a *App) postsGetHandler(c *gin.Context) {
	posts, err := a.store.ListPosts(c.Request.Context())
	if err != nil {
		a.log.Error("failed to fetch blog posts", "error", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (a *App) postGetHandler(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	post, err := a.store.GetPost(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errNotFound) {
			writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "Blog post not found"})
			return
		}
		a.log.Error("failed to fetch blog post", "id", id, "error", err)
		writeAPIError(c, err)
		return
	}

	contentHTML, err := a.render.Render(post.Content)
	if err != nil {
		a.log.Error("failed to render blog post", "id", id, "error", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post, "contentHtml": contentHTML})
}
