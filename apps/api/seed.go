package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"golang.org/x/crypto/bcrypt"
)

//go:embed seed/*.json
var seedFiles embed.FS

func loadSeedData() (sitecontent.ContentDocument, []sitecontent.BlogPost, error) {
	var doc sitecontent.ContentDocument
	var posts []sitecontent.BlogPost

	raw, err := seedFiles.ReadFile("seed/landing.json")
	if err != nil {
		return doc, nil, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, nil, fmt.Errorf("decode seed content: %w", err)
	}
	raw, err = seedFiles.ReadFile("seed/posts.json")
	if err != nil {
		return doc, nil, err
	}
	if err := json.Unmarshal(raw, &posts); err != nil {
		return doc, nil, fmt.Errorf("decode seed posts: %w", err)
	}
	return doc, posts, nil
}

// seed writes the initial landing document and posts, then ensures the
// bootstrap admin. Running it again overwrites the seeded values.
func (a *App) seed(ctx context.Context) error {
	doc, posts, err := loadSeedData()
	if err != nil {
		return err
	}
	if err := a.store.SaveContent(ctx, doc); err != nil {
		return err
	}
	for _, p := range posts {
		if err := a.store.SavePost(ctx, p); err != nil {
			return fmt.Errorf("seed post %s: %w", p.ID, err)
		}
	}
	a.log.Info("seeded content", "posts", len(posts))
	return a.bootstrapAdmin(ctx)
}

func (a *App) bootstrapAdmin(ctx context.Context) error {
	email := normalizeEmail(a.cfg.BootstrapAdminEmail)
	password := a.cfg.BootstrapAdminPassword
	if email == "" || password == "" {
		a.log.Info("bootstrap admin not configured")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := a.store.UpsertAdmin(ctx, adminCredential{Email: email, PasswordHash: string(hash), Role: defaultAdminRole}); err != nil {
		return err
	}
	a.log.Info("bootstrap admin ensured", "email", email)
	return nil
}
