package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"github.com/gin-gonic/gin"
)

var (
	errInvalidContent  = &apiError{Status: http.StatusBadRequest, Code: "invalid_content", Message: "Invalid content"}
	errContentConflict = &apiError{Status: http.StatusConflict, Code: "conflict", Message: "Content was changed by someone else"}
)

// contentSaveHandler merges the posted sections into the landing document.
// Only the top-level sections present in the payload are written.
// Method: POST /api/v1/content
// Access: Bearer token
func (a *App) contentSaveHandler(c *gin.Context) {
	var payload struct {
		Content json.RawMessage `json:"content"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, errInvalidContent)
		return
	}
	raw := bytes.TrimSpace(payload.Content)
	if len(raw) == 0 || raw[0] != '{' {
		writeAPIError(c, errInvalidContent)
		return
	}
	var patch sitecontent.ContentDocument
	if err := json.Unmarshal(raw, &patch); err != nil {
		writeAPIError(c, errInvalidContent)
		return
	}

	ctx := c.Request.Context()
	if ifMatch := c.GetHeader("If-Match"); ifMatch != "" {
		current, err := a.store.GetContent(ctx)
		if err != nil && !errors.Is(err, errNotFound) {
			a.log.Error("failed to load content for precondition", "error", err)
			writeAPIError(c, err)
			return
		}
		if err != nil || !etagMatches(ifMatch, current.ETag()) {
			writeAPIError(c, errContentConflict)
			return
		}
	}

	if err := a.store.SaveContent(ctx, patch); err != nil {
		a.log.Error("failed to save content", "error", err)
		writeAPIError(c, err)
		return
	}

	claims, _ := getAdminClaims(c)
	a.log.Info("content saved", "by", claims.Email, "sections", len(patch.Fields()))
	a.events.Publish(sitecontent.Event{Type: sitecontent.EventContentUpdated, At: time.Now().UTC()})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
