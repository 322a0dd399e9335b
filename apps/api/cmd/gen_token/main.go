package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	email := flag.String("email", "admin@example.com", "admin email embedded in the token")
	subject := flag.String("sub", "", "subject claim (defaults to the email)")
	secret := flag.String("secret", "", "signing secret (defaults to JWT_SECRET)")
	ttl := flag.Duration("ttl", 7*24*time.Hour, "token lifetime")
	flag.Parse()

	signingSecret := *secret
	if signingSecret == "" {
		signingSecret = strings.TrimSpace(os.Getenv("JWT_SECRET"))
	}
	if signingSecret == "" {
		fmt.Fprintln(os.Stderr, "signing secret required: pass -secret or set JWT_SECRET")
		os.Exit(1)
	}

	normalized := strings.ToLower(strings.TrimSpace(*email))
	sub := *subject
	if sub == "" {
		sub = normalized
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": normalized,
		"role":  "admin",
		"iat":   now.Unix(),
		"exp":   now.Add(*ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(signingSecret))
	if err != nil {
		panic(err)
	}
	fmt.Println(signedToken)
}
