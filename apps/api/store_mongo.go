package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoStore owns one client per process. It connects on first use and
// returns the same handle afterwards; a broken handle is not replaced.
type mongoStore struct {
	cfg *Config

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

func newMongoStore(cfg *Config) *mongoStore {
	return &mongoStore{cfg: cfg}
}

func (s *mongoStore) database(ctx context.Context) (*mongo.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if err := requireSettings(
		"MONGODB_URI", s.cfg.MongoURI,
		"MONGODB_DB", s.cfg.MongoDatabase,
		"ADMIN_COLLECTION", s.cfg.AdminCollection,
		"CONTENT_COLLECTION", s.cfg.ContentCollection,
		"POSTS_COLLECTION", s.cfg.PostsCollection,
	); err != nil {
		return nil, err
	}

	opts := options.Client().
		ApplyURI(s.cfg.MongoURI).
		SetServerSelectionTimeout(s.cfg.StoreTimeout).
		SetConnectTimeout(s.cfg.StoreTimeout).
		SetTimeout(s.cfg.StoreTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(s.cfg.MongoDatabase)
	if err := ensureMongoIndexes(connectCtx, db, s.cfg); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	s.client = client
	s.db = db
	return db, nil
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database, cfg *Config) error {
	unique := options.Index().SetUnique(true)
	if _, err := db.Collection(cfg.PostsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("create posts index: %w", err)
	}
	if _, err := db.Collection(cfg.AdminCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("create admins index: %w", err)
	}
	return nil
}

func (s *mongoStore) collection(ctx context.Context, name func(*Config) string) (*mongo.Collection, error) {
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name(s.cfg)), nil
}

func adminCollection(c *Config) string   { return c.AdminCollection }
func contentCollection(c *Config) string { return c.ContentCollection }
func postsCollection(c *Config) string   { return c.PostsCollection }

func (s *mongoStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

type mongoAdmin struct {
	ID           any    `bson:"_id"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"passwordHash"`
	Role         string `bson:"role"`
}

func (s *mongoStore) FindAdmin(ctx context.Context, email string) (*adminCredential, error) {
	coll, err := s.collection(ctx, adminCollection)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc mongoAdmin
	if err := coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return &adminCredential{
		ID:           mongoIDString(doc.ID, doc.Email),
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Role:         doc.Role,
	}, nil
}

func mongoIDString(id any, fallback string) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case nil:
	default:
		return fmt.Sprint(v)
	}
	return fallback
}

// UpsertAdmin creates or replaces the credential keyed by email.
func (s *mongoStore) UpsertAdmin(ctx context.Context, admin adminCredential) error {
	coll, err := s.collection(ctx, adminCollection)
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	_, err = coll.UpdateOne(ctx,
		bson.M{"email": admin.Email},
		bson.M{
			"$set": bson.M{
				"email":        admin.Email,
				"passwordHash": admin.PasswordHash,
				"role":         admin.Role,
				"updatedAt":    now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

// GetContent decodes into the section struct, which drops _id and the
// timestamps the store keeps alongside the sections.
func (s *mongoStore) GetContent(ctx context.Context) (sitecontent.ContentDocument, error) {
	var doc sitecontent.ContentDocument
	coll, err := s.collection(ctx, contentCollection)
	if err != nil {
		return doc, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := coll.FindOne(ctx, bson.M{"_id": sitecontent.LandingID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return doc, errNotFound
		}
		return doc, fmt.Errorf("get content: %w", err)
	}
	return doc, nil
}

func (s *mongoStore) SaveContent(ctx context.Context, patch sitecontent.ContentDocument) error {
	coll, err := s.collection(ctx, contentCollection)
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{"updatedAt": now}
	for key, section := range patch.Fields() {
		set[key] = section
	}
	_, err = coll.UpdateOne(ctx,
		bson.M{"_id": sitecontent.LandingID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}

func (s *mongoStore) ListPosts(ctx context.Context) ([]sitecontent.BlogPost, error) {
	coll, err := s.collection(ctx, postsCollection)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	}))
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := []sitecontent.BlogPost{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (s *mongoStore) GetPost(ctx context.Context, id string) (*sitecontent.BlogPost, error) {
	coll, err := s.collection(ctx, postsCollection)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var post sitecontent.BlogPost
	if err := coll.FindOne(ctx, bson.M{"id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

func (s *mongoStore) SavePost(ctx context.Context, post sitecontent.BlogPost) error {
	coll, err := s.collection(ctx, postsCollection)
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	_, err = coll.UpdateOne(ctx,
		bson.M{"id": post.ID},
		bson.M{
			"$set": bson.M{
				"id":        post.ID,
				"title":     post.Title,
				"excerpt":   post.Excerpt,
				"content":   post.Content,
				"image":     post.Image,
				"date":      post.Date,
				"author":    post.Author,
				"category":  post.Category,
				"updatedAt": now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save post: %w", err)
	}
	return nil
}

// DeletePost removes the post if present. Deleting an unknown id succeeds.
func (s *mongoStore) DeletePost(ctx context.Context, id string) error {
	coll, err := s.collection(ctx, postsCollection)
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := coll.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.db = nil
	return err
}
