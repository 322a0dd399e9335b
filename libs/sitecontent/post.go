package sitecontent

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxExcerptLength bounds BlogPost.Excerpt. Only clients enforce it.
const MaxExcerptLength = 200

// DefaultCategory is used by editors when a new post has no category yet.
const DefaultCategory = "Strategy"

// Categories offered by the blog editor.
var Categories = []string{"Strategy", "Technology", "Case Study", "Product Update"}

// BlogPost is a blog entry keyed by a caller-chosen string id.
type BlogPost struct {
	ID       string `json:"id" bson:"id"`
	Title    string `json:"title" bson:"title"`
	Excerpt  string `json:"excerpt" bson:"excerpt"`
	Content  string `json:"content" bson:"content"`
	Image    string `json:"image" bson:"image"`
	Date     string `json:"date" bson:"date"`
	Author   string `json:"author" bson:"author"`
	Category string `json:"category" bson:"category"`
}

// ClonePosts copies posts. BlogPost holds only strings, so a shallow copy of
// the slice shares nothing mutable.
func ClonePosts(posts []BlogPost) []BlogPost {
	return slices.Clone(posts)
}

// Normalize trims surrounding whitespace from the identity field.
func (p *BlogPost) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
}

// FieldError names the first invalid field of a post.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// ErrInvalidPost is matched by every *FieldError.
var ErrInvalidPost = errors.New("invalid post")

func (e *FieldError) Is(target error) bool { return target == ErrInvalidPost }

// Validate applies the editor rules: title, excerpt, content, image and author
// are required and the excerpt is at most MaxExcerptLength characters.
func (p BlogPost) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"title", p.Title},
		{"excerpt", p.Excerpt},
		{"content", p.Content},
		{"image", p.Image},
		{"author", p.Author},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Field: r.field, Message: "is required"}
		}
	}
	if utf8.RuneCountInString(p.Excerpt) > MaxExcerptLength {
		return &FieldError{Field: "excerpt", Message: fmt.Sprintf("must be at most %d characters", MaxExcerptLength)}
	}
	return nil
}

// DisplayDate formats t the way the blog shows post dates ("Oct 12, 2023").
func DisplayDate(t time.Time) string {
	return t.Format("Jan 02, 2006")
}
