package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// contentGetHandler returns the landing document without store identity or
// timestamps.
// Method: GET /api/v1/content
// Access: Public
func (a *App) contentGetHandler(c *gin.Context) {
	doc, err := a.store.GetContent(c.Request.Context())
	if err != nil {
		if errors.Is(err, errNotFound) {
			writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "Content not found"})
			return
		}
		a.log.Error("failed to load content", "error", err)
		writeAPIError(c, err)
		return
	}

	etag := doc.ETag()
	c.Header("Cache-Control", "no-cache")
	c.Header("ETag", etag)
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": doc})
}

// etagMatches reports whether header lists etag or is "*". Weak validators
// compare equal to their strong form.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" || etag == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
