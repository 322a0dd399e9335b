package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *App) adminLoginHandler(c *gin.Context) {
	if _, err := a.signingSecret(); err != nil {
		writeAPIError(c, err)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		payload.Email, payload.Password = "", ""
	}
	email := normalizeEmail(payload.Email)
	if email == "" || payload.Password == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Email and password required"})
		return
	}

	admin, err := a.authenticateAdminCredentials(c.Request.Context(), email, payload.Password)
	if err != nil {
		if _, ok := err.(*apiError); !ok {
			a.log.Error("admin login failed", "error", err)
		}
		writeAPIError(c, err)
		return
	}

	token, err := a.createAdminToken(*admin)
	if err != nil {
		a.log.Error("failed to sign admin token", "error", err)
		writeAPIError(c, err)
		return
	}

	a.sendLoginAlert(admin.Email, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *App) adminSessionHandler(c *gin.Context) {
	claims, err := getAdminClaims(c)
	if err != nil {
		writeAPIError(c, errUnauthorized)
		return
	}
	c.JSON(http.StatusOK, claims)
}
