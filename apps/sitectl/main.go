// Command sitectl administers the site content and blog from a terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/siteclient"
	"github.com/joho/godotenv"
)

const defaultAPIURL = "http://localhost:8080"

const usage = `usage: sitectl <command> [flags]

commands:
  login -email EMAIL [-password PASSWORD]
  logout
  session
  content get [-fallback]
  content save -file PATH [-base PATH]
  posts list [-fallback]
  posts get -id ID
  posts save -file PATH
  posts delete -id ID
  watch

environment:
  SITE_API_URL        API base url (default ` + defaultAPIURL + `)
  SITECTL_TOKEN_FILE  token location (default <user config dir>/exeract/token)
  SITECTL_CACHE_DIR   snapshot directory (default <user cache dir>/exeract)
  SITECTL_PASSWORD    password for login when -password is not given
`

var errUsage = errors.New("invalid usage")

type cliConfig struct {
	APIURL    string
	TokenFile string
	CacheDir  string
}

func loadCLIConfig() cliConfig {
	cfg := cliConfig{
		APIURL:    valueOrDefault(os.Getenv("SITE_API_URL"), defaultAPIURL),
		TokenFile: strings.TrimSpace(os.Getenv("SITECTL_TOKEN_FILE")),
		CacheDir:  strings.TrimSpace(os.Getenv("SITECTL_CACHE_DIR")),
	}
	if cfg.TokenFile == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.TokenFile = filepath.Join(dir, "exeract", "token")
		} else {
			cfg.TokenFile = ".sitectl-token"
		}
	}
	if cfg.CacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cfg.CacheDir = filepath.Join(dir, "exeract")
		} else {
			cfg.CacheDir = ".sitectl-cache"
		}
	}
	return cfg
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, loadCLIConfig(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "sitectl:", err)
		os.Exit(1)
	}
}

type cli struct {
	client *siteclient.Client
	log    *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, cfg cliConfig, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := siteclient.New(cfg.APIURL,
		siteclient.WithTokenStore(&siteclient.FileTokenStore{Path: cfg.TokenFile}),
		siteclient.WithFallbackStore(siteclient.DirFallbackStore{Dir: cfg.CacheDir}),
		siteclient.WithLogger(log),
	)
	if err != nil {
		return err
	}
	c := &cli{client: client, log: log, stdin: stdin, stdout: stdout, stderr: stderr}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.client.Logout()
	case "session":
		return c.session(ctx)
	case "content":
		return c.content(ctx, rest)
	case "posts":
		return c.posts(ctx, rest)
	case "watch":
		return c.watch(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}
