package main

import (
	"context"
	"errors"
	"strings"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
)

const (
	storeDriverMongo    = "mongo"
	storeDriverPostgres = "postgres"
)

var errNotFound = errors.New("not found")

// configError marks a required setting that is absent at first use.
type configError struct {
	Keys []string
}

func (e *configError) Error() string {
	return "missing configuration: " + strings.Join(e.Keys, ", ")
}

type adminCredential struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}

// siteStore is the document store behind the handlers. Each method is a
// single store operation bounded by the configured timeout.
type siteStore interface {
	FindAdmin(ctx context.Context, email string) (*adminCredential, error)
	UpsertAdmin(ctx context.Context, admin adminCredential) error
	GetContent(ctx context.Context) (sitecontent.ContentDocument, error)
	SaveContent(ctx context.Context, patch sitecontent.ContentDocument) error
	ListPosts(ctx context.Context) ([]sitecontent.BlogPost, error)
	GetPost(ctx context.Context, id string) (*sitecontent.BlogPost, error)
	SavePost(ctx context.Context, post sitecontent.BlogPost) error
	DeletePost(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

func newSiteStore(cfg *Config) siteStore {
	if cfg.StoreDriver == storeDriverPostgres {
		return newPostgresStore(cfg)
	}
	return newMongoStore(cfg)
}

func requireSettings(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return &configError{Keys: missing}
	}
	return nil
}
