package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type adminClaims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// dummyPasswordHash is compared against when the email is unknown so both
// failure paths spend one bcrypt comparison.
func dummyPasswordHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("exeract-unknown-admin"), bcrypt.DefaultCost)
	})
	return dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *App) signingSecret() ([]byte, error) {
	if a.cfg == nil || a.cfg.AppSigningSecret == "" {
		return nil, &configError{Keys: []string{"JWT_SECRET"}}
	}
	return []byte(a.cfg.AppSigningSecret), nil
}

func (a *App) createAdminToken(admin adminCredential) (string, error) {
	secret, err := a.signingSecret()
	if err != nil {
		return "", err
	}
	subject := admin.ID
	if subject == "" {
		subject = admin.Email
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": admin.Email,
		"role":  admin.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(adminTokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// verifyAdminToken checks signature and expiry. Every failure is reported
// as the same error so callers cannot tell the cases apart.
func (a *App) verifyAdminToken(tokenString string) (*adminClaims, error) {
	secret, err := a.signingSecret()
	if err != nil {
		return nil, err
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errUnauthorized
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	subject, _ := claims["sub"].(string)
	if email == "" || role == "" {
		return nil, errUnauthorized
	}
	result := &adminClaims{Subject: subject, Email: email, Role: role}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		result.ExpiresAt = exp.Time.UTC()
	}
	return result, nil
}

// authenticateAdminCredentials never reveals whether the email exists.
func (a *App) authenticateAdminCredentials(ctx context.Context, email, password string) (*adminCredential, error) {
	admin, err := a.store.FindAdmin(ctx, email)
	if err != nil {
		if errors.Is(err, errNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(password))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if admin.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, errInvalidCredentials
	}
	if admin.Role == "" {
		admin.Role = defaultAdminRole
	}
	if admin.Email == "" {
		admin.Email = email
	}
	return admin, nil
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (a *App) requireAdminToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := a.signingSecret(); err != nil {
			writeAPIError(c, err)
			c.Abort()
			return
		}
		token := bearerToken(c)
		if token == "" {
			writeAPIError(c, errUnauthorized)
			c.Abort()
			return
		}
		claims, err := a.verifyAdminToken(token)
		if err != nil {
			writeAPIError(c, err)
			c.Abort()
			return
		}
		c.Set(adminClaimsKey, *claims)
		c.Next()
	}
}

func getAdminClaims(c *gin.Context) (adminClaims, error) {
	value, ok := c.Get(adminClaimsKey)
	if !ok {
		return adminClaims{}, fmt.Errorf("missing admin claims")
	}
	claims, ok := value.(adminClaims)
	if !ok {
		return adminClaims{}, fmt.Errorf("invalid admin claims")
	}
	return claims, nil
}
