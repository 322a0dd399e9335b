package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/siteclient"
	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", fs.Name(), errUsage)
	}
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSONFile decodes path, or stdin when path is "-".
func (c *cli) readJSONFile(path string, v any) error {
	var r io.Reader
	if path == "-" {
		r = c.stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login", c.stderr)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password (or SITECTL_PASSWORD, or one line on stdin)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("login: -email is required: %w", errUsage)
	}

	pw := *password
	if pw == "" {
		pw = os.Getenv("SITECTL_PASSWORD")
	}
	if pw == "" {
		line, err := bufio.NewReader(c.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		pw = strings.TrimRight(line, "\r\n")
	}

	if err := c.client.Login(ctx, *email, pw); err != nil {
		if errors.Is(err, siteclient.ErrInvalidCredentials) {
			return errors.New("invalid email or password")
		}
		return err
	}
	fmt.Fprintln(c.stdout, "logged in")
	return nil
}

func (c *cli) session(ctx context.Context) error {
	s, err := c.client.Session(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(s)
}

func (c *cli) content(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "get":
		fs := newFlagSet("content get", c.stderr)
		fallback := fs.Bool("fallback", false, "print the last saved snapshot if the API fails")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		doc, err := c.client.Content(ctx)
		if err != nil && *fallback {
			snap, snapErr := c.client.LastKnownContent()
			if snapErr != nil {
				return err
			}
			c.log.Warn("API unavailable, printing saved snapshot", "saved_at", snap.SavedAt.Format(time.RFC3339), "error", err)
			return c.printJSON(snap)
		}
		if err != nil {
			return err
		}
		return c.printJSON(doc)

	case "save":
		fs := newFlagSet("content save", c.stderr)
		file := fs.String("file", "", "content document JSON, - for stdin")
		basePath := fs.String("base", "", "document the edit started from; the save fails if the stored one differs")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		if *file == "" {
			return fmt.Errorf("content save: -file is required: %w", errUsage)
		}
		var doc sitecontent.ContentDocument
		if err := c.readJSONFile(*file, &doc); err != nil {
			return err
		}
		if len(doc.Fields()) == 0 {
			return errors.New("content save: document has no sections")
		}
		if missing := doc.MissingSections(); len(missing) > 0 {
			c.log.Warn("partial save, stored sections are kept", "missing", strings.Join(missing, ","))
		}

		var err error
		if *basePath != "" {
			var base sitecontent.ContentDocument
			if err := c.readJSONFile(*basePath, &base); err != nil {
				return err
			}
			err = c.client.SaveContentIfUnchanged(ctx, base, doc)
		} else {
			err = c.client.SaveContent(ctx, doc)
		}
		if errors.Is(err, siteclient.ErrConflict) {
			return errors.New("content changed since the base document was fetched; fetch it again and reapply your edit")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "content saved")
		return nil
	}
	return fmt.Errorf("unknown content command %q: %w", args[0], errUsage)
}

func (c *cli) posts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "list":
		fs := newFlagSet("posts list", c.stderr)
		fallback := fs.Bool("fallback", false, "print the last saved snapshot if the API fails")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		posts, err := c.client.Posts(ctx)
		if err != nil && *fallback {
			snap, snapErr := c.client.LastKnownPosts()
			if snapErr != nil {
				return err
			}
			c.log.Warn("API unavailable, printing saved snapshot", "saved_at", snap.SavedAt.Format(time.RFC3339), "error", err)
			return c.printJSON(snap)
		}
		if err != nil {
			return err
		}
		return c.printJSON(posts)

	case "get":
		fs := newFlagSet("posts get", c.stderr)
		id := fs.String("id", "", "post id")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("posts get: -id is required: %w", errUsage)
		}
		view, err := c.client.Post(ctx, *id)
		if err != nil {
			return err
		}
		return c.printJSON(view)

	case "save":
		fs := newFlagSet("posts save", c.stderr)
		file := fs.String("file", "", "post JSON, - for stdin")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		if *file == "" {
			return fmt.Errorf("posts save: -file is required: %w", errUsage)
		}
		var p sitecontent.BlogPost
		if err := c.readJSONFile(*file, &p); err != nil {
			return err
		}
		if p.Date == "" {
			p.Date = sitecontent.DisplayDate(time.Now())
		}
		if p.Category == "" {
			p.Category = sitecontent.DefaultCategory
		}
		saved, err := c.client.SavePost(ctx, p)
		if err != nil {
			return err
		}
		return c.printJSON(saved)

	case "delete":
		fs := newFlagSet("posts delete", c.stderr)
		id := fs.String("id", "", "post id")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("posts delete: -id is required: %w", errUsage)
		}
		if err := c.client.DeletePost(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "post deleted")
		return nil
	}
	return fmt.Errorf("unknown posts command %q: %w", args[0], errUsage)
}

// watch prints one line per refresh until interrupted.
func (c *cli) watch(ctx context.Context) error {
	cancelContent := c.client.SubscribeContent(func(doc sitecontent.ContentDocument) {
		fmt.Fprintf(c.stdout, "%s content updated etag=%s\n", time.Now().Format(time.RFC3339), doc.ETag())
	})
	defer cancelContent()
	cancelPosts := c.client.SubscribePosts(func(posts []sitecontent.BlogPost) {
		fmt.Fprintf(c.stdout, "%s posts updated count=%d\n", time.Now().Format(time.RFC3339), len(posts))
	})
	defer cancelPosts()

	err := c.client.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
