package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
)

const blogPostColumns = `id, title, excerpt, content, image, display_date, author, category`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlogPost(row rowScanner) (sitecontent.BlogPost, error) {
	var p sitecontent.BlogPost
	err := row.Scan(&p.ID, &p.Title, &p.Excerpt, &p.Content, &p.Image, &p.Date, &p.Author, &p.Category)
	return p, err
}

func (s *postgresStore) ListPosts(ctx context.Context) ([]sitecontent.BlogPost, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT `+blogPostColumns+`
		FROM blog_posts
		ORDER BY created_at DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []sitecontent.BlogPost{}
	for rows.Next() {
		p, err := scanBlogPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *postgresStore) GetPost(ctx context.Context, id string) (*sitecontent.BlogPost, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	p, err := scanBlogPost(db.QueryRowContext(ctx, `
		SELECT `+blogPostColumns+`
		FROM blog_posts
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// SavePost upserts by id. created_at is only set by the insert branch.
func (s *postgresStore) SavePost(ctx context.Context, p sitecontent.BlogPost) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err = db.ExecContext(ctx, `
		INSERT INTO blog_posts (`+blogPostColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			excerpt = EXCLUDED.excerpt,
			content = EXCLUDED.content,
			image = EXCLUDED.image,
			display_date = EXCLUDED.display_date,
			author = EXCLUDED.author,
			category = EXCLUDED.category,
			updated_at = NOW()
	`, p.ID, p.Title, p.Excerpt, p.Content, p.Image, p.Date, p.Author, p.Category)
	if err != nil {
		return fmt.Errorf("save post: %w", err)
	}
	return nil
}

func (s *postgresStore) DeletePost(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
