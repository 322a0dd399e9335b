package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/mailer"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	adminTokenDuration       = 7 * 24 * time.Hour
	defaultAdminRole         = "admin"
	defaultStoreTimeout      = 5 * time.Second
	defaultFunctionsPrefix   = "/.netlify/functions"
	loginAlertTimeout        = 5 * time.Second
	eventClientBuffer        = 16
	devCORSOriginLocalhost   = "http://localhost:5173"
	devCORSOriginLoopback    = "http://127.0.0.1:5173"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
	adminClaimsKey           = "adminClaims"
)

type Config struct {
	Addr                string
	Env                 string
	PublicBaseURL       string
	StoreDriver         string
	MongoURI            string
	MongoDatabase       string
	AdminCollection     string
	ContentCollection   string
	PostsCollection     string
	DatabaseURL         string
	AppSigningSecret    string
	StoreTimeout        time.Duration
	FunctionsPrefix     string
	LoginAlertEmail     string
	ResendAPIKey        string
	MailerFromAddresses map[string]string

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

type App struct {
	cfg *Config
	log *slog.Logger

	store  siteStore
	events *eventHub
	mailer *mailer.Mailer
	render *postRenderer
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

var (
	errUnauthorized       = &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Unauthorized"}
	errInvalidCredentials = &apiError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "Invalid credentials"}
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	mail := mailer.Select(cfg.ResendAPIKey, cfg.MailerFromAddresses, logger)

	app := &App{
		cfg:    cfg,
		log:    logger,
		store:  newSiteStore(cfg),
		events: newEventHub(logger),
		mailer: mail,
		render: newPostRenderer(),
	}

	logger.Info(
		"runtime configuration",
		"env", cfg.Env,
		"addr", cfg.Addr,
		"store_driver", cfg.StoreDriver,
		"store_timeout", cfg.StoreTimeout.String(),
		"mailer", mail.ProviderName(),
	)
	if missing := cfg.missingSettings(); len(missing) > 0 {
		logger.Warn("required settings missing; affected requests will fail", "missing", missing)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		code := app.runSeed(ctx)
		cancel()
		os.Exit(code)
	}
	defer app.closeStore()

	go app.events.Run(ctx)

	router := app.routes()

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		app.log.Info("starting lambda handler")
		lambda.Start(newLambdaHandler(router))
		return
	}

	app.log.Info("starting gin API", "addr", cfg.Addr)
	if err := router.Run(cfg.Addr); err != nil {
		panic(err)
	}
}

func (a *App) closeStore() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.StoreTimeout)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		a.log.Error("failed to close store", "err", err)
	}
}

// runSeed seeds the store and closes it, returning the process exit code.
func (a *App) runSeed(ctx context.Context) int {
	defer a.closeStore()
	if err := a.seed(ctx); err != nil {
		a.log.Error("seed failed", "err", err)
		return 1
	}
	a.log.Info("seed completed")
	return 0
}

func (a *App) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method_not_allowed", "message": "Method Not Allowed"})
	})
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		panic(err)
	}
	r.Use(gin.Recovery())
	r.Use(a.loggingMiddleware())
	r.Use(a.corsMiddleware())

	r.GET("/healthz", healthHandler)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", a.adminLoginHandler)
		api.GET("/auth/session", a.requireAdminToken(), a.adminSessionHandler)

		api.GET("/content", a.contentGetHandler)
		api.POST("/content", a.requireAdminToken(), a.contentSaveHandler)

		api.GET("/posts", a.postsGetHandler)
		api.GET("/posts/:id", a.postGetHandler)
		api.POST("/posts", a.requireAdminToken(), a.postsSaveHandler)
		api.POST("/posts/delete", a.requireAdminToken(), a.postsDeleteHandler)

		api.GET("/events", a.eventsHandler)
	}

	// The browser client addresses handlers by function name.
	fn := r.Group(a.cfg.FunctionsPrefix)
	{
		fn.GET("/hello", healthHandler)
		fn.POST("/admin-login", a.adminLoginHandler)
		fn.GET("/content-get", a.contentGetHandler)
		fn.POST("/content-save", a.requireAdminToken(), a.contentSaveHandler)
		fn.GET("/posts-get", a.postsGetHandler)
		fn.POST("/posts-save", a.requireAdminToken(), a.postsSaveHandler)
		fn.POST("/posts-delete", a.requireAdminToken(), a.postsDeleteHandler)
	}

	return r
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func loadConfig() (*Config, error) {
	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	driver := strings.ToLower(valueOrDefault("STORE_DRIVER", storeDriverMongo))
	if driver != storeDriverMongo && driver != storeDriverPostgres {
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q", storeDriverMongo, storeDriverPostgres)
	}

	storeTimeout := defaultStoreTimeout
	if raw := strings.TrimSpace(os.Getenv("STORE_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("STORE_TIMEOUT has invalid duration %q: %w", raw, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("STORE_TIMEOUT must be > 0")
		}
		storeTimeout = parsed
	}

	prefix := "/" + strings.Trim(valueOrDefault("FUNCTIONS_PREFIX", defaultFunctionsPrefix), "/")

	return &Config{
		Addr:              valueOrDefault("GIN_ADDR", ":8080"),
		Env:               env,
		PublicBaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/"),
		StoreDriver:       driver,
		MongoURI:          strings.TrimSpace(os.Getenv("MONGODB_URI")),
		MongoDatabase:     strings.TrimSpace(os.Getenv("MONGODB_DB")),
		AdminCollection:   strings.TrimSpace(os.Getenv("ADMIN_COLLECTION")),
		ContentCollection: strings.TrimSpace(os.Getenv("CONTENT_COLLECTION")),
		PostsCollection:   strings.TrimSpace(os.Getenv("POSTS_COLLECTION")),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AppSigningSecret:  valueFromEnvKeys("JWT_SECRET", "APP_SIGNING_SECRET"),
		StoreTimeout:      storeTimeout,
		FunctionsPrefix:   prefix,
		LoginAlertEmail:   strings.TrimSpace(os.Getenv("LOGIN_ALERT_EMAIL")),
		ResendAPIKey:      strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		MailerFromAddresses: map[string]string{
			"resend": valueOrDefault("MAILER_FROM_ADDRESS_RESEND", "noreply@exeract.com"),
			"log":    valueOrDefault("MAILER_FROM_ADDRESS_LOG", "noreply@exeract.local"),
		},
		BootstrapAdminEmail:    strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		BootstrapAdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}, nil
}

// missingSettings lists required variables that are unset for the selected
// store driver. They are reported at startup and enforced on first use.
func (c *Config) missingSettings() []string {
	var missing []string
	check := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}
	switch c.StoreDriver {
	case storeDriverPostgres:
		check("DATABASE_URL", c.DatabaseURL)
	default:
		check("MONGODB_URI", c.MongoURI)
		check("MONGODB_DB", c.MongoDatabase)
		check("ADMIN_COLLECTION", c.AdminCollection)
		check("CONTENT_COLLECTION", c.ContentCollection)
		check("POSTS_COLLECTION", c.PostsCollection)
	}
	check("JWT_SECRET", c.AppSigningSecret)
	return missing
}

func valueOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func valueFromEnvKeys(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

func (a *App) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if a.isAllowedCORSOrigin(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, If-Match, If-None-Match")
			c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			c.Header("Access-Control-Expose-Headers", "ETag")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *App) isAllowedCORSOrigin(origin string) bool {
	if origin == "" || a.cfg == nil {
		return false
	}
	if a.cfg.PublicBaseURL != "" && origin == a.cfg.PublicBaseURL {
		return true
	}
	if !strings.EqualFold(a.cfg.Env, "development") {
		return false
	}
	return origin == devCORSOriginLocalhost || origin == devCORSOriginLoopback
}

func writeAPIError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Code, "message": apiErr.Message})
		return
	}

	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_misconfigured", "message": "Server misconfigured"})
		return
	}

	if errors.Is(err, errNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Internal server error"})
}
