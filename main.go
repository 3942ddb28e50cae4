package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ecodenuncia/api/mailer"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	reportPageSize           = 15
	maxImageCount            = 2
	maxImageBytes            = 5 * 1024 * 1024
	jpegRecompressionQuality = 85
	uploadNamespace          = "denuncias_imagens"
	adminCookieName          = "ecodenuncia_admin_session"
	adminSessionDuration     = 8 * time.Hour
	passwordResetTokenExpiry = 15 * time.Minute
	listDescriptionLimit     = 50
	pdfDescriptionLimit      = 100
	mapTileURL               = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	mapTileAttribution       = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	devCORSOriginLocalhost   = "http://localhost:3000"
	devCORSOriginLoopback    = "http://127.0.0.1:3000"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
)

var (
	reportStatuses = []string{"pendente", "em_analise", "aprovada", "resolvida", "rejeitada"}

	allowedImageTypes = map[string]struct{}{"image/jpeg": {}, "image/png": {}}
)

type Config struct {
	Addr                   string
	Env                    string
	DatabaseURL            string
	DataRoot               string
	PublicBaseURL          string
	AppSigningSecret       string
	TimeZone               string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	ResendAPIKey           string
	MailerFromAddresses    map[string]string
}

type App struct {
	cfg *Config
	db  *sql.DB
	log *slog.Logger

	mailer   *mailer.Mailer
	location *time.Location

	// store functions, swappable in handler tests
	adminAuthenticate        func(ctx context.Context, email, password string) (*Admin, error)
	adminListReportsPage     func(ctx context.Context, req ReportPageRequest) (*ReportPage, error)
	adminListReports         func(ctx context.Context, filters map[string]any) ([]Report, error)
	adminUpdateReportStatus  func(ctx context.Context, reportID, status string) (*Report, error)
	adminListCategories      func(ctx context.Context) ([]Category, error)
	adminCreateCategory      func(ctx context.Context, name string) (*Category, error)
	adminDeleteCategory      func(ctx context.Context, categoryID string) error
	createReport             func(ctx context.Context, report Report) (*Report, error)
	getReportByID            func(ctx context.Context, reportID string) (*Report, error)
	listMapReports           func(ctx context.Context) ([]Report, error)
	createPasswordResetToken func(ctx context.Context, email string) (string, error)
	consumePasswordReset     func(ctx context.Context, token, newPassword string) error
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func main() {
	if err := loadDotEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		panic(err)
	}

	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		panic(fmt.Errorf("invalid TIME_ZONE %q: %w", cfg.TimeZone, err))
	}

	var mailProvider mailer.Provider
	if cfg.ResendAPIKey != "" {
		mailProvider = mailer.NewResendProvider(cfg.ResendAPIKey)
		logger.Info("mailer initialized", "provider", "resend")
	} else {
		mailProvider = mailer.NewLogProvider(logger)
		logger.Info("mailer initialized", "provider", "log")
	}
	mailClient := mailer.New(mailProvider, cfg.MailerFromAddresses[mailProvider.Name()])

	app := &App{
		cfg:      cfg,
		db:       db,
		log:      logger,
		mailer:   mailClient,
		location: location,
	}
	app.bindStores()

	logger.Info("runtime configuration", "env", cfg.Env, "addr", cfg.Addr, "time_zone", cfg.TimeZone)

	if err := app.runMigrations(ctx); err != nil {
		panic(err)
	}

	if err := app.bootstrapAdmin(ctx); err != nil {
		panic(err)
	}

	if err := os.MkdirAll(filepath.Join(cfg.DataRoot, "uploads", uploadNamespace), 0o755); err != nil {
		panic(err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		panic(err)
	}
	r.Use(gin.Recovery())
	r.Use(app.loggingMiddleware())
	r.Use(app.corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// uploaded photo download URLs resolve here
	r.Static("/uploads", filepath.Join(cfg.DataRoot, "uploads"))

	app.registerRoutes(r)

	app.log.Info("starting gin API", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		panic(err)
	}
}

func (a *App) bindStores() {
	a.adminAuthenticate = a.authenticateAdminCredentials
	a.adminListReportsPage = a.storeListReportsPage
	a.adminListReports = a.storeListReports
	a.adminUpdateReportStatus = a.storeUpdateReportStatus
	a.adminListCategories = a.storeListCategories
	a.adminCreateCategory = a.storeCreateCategory
	a.adminDeleteCategory = a.storeDeleteCategory
	a.createReport = a.storeCreateReport
	a.getReportByID = a.storeGetReportByID
	a.listMapReports = a.storeListMapReports
	a.createPasswordResetToken = a.storeCreatePasswordResetToken
	a.consumePasswordReset = a.storeConsumePasswordReset
}

func (a *App) registerRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/denuncias", a.submitReportHandler)
		api.GET("/denuncias/mapa", a.publicMapReportsHandler)
		api.GET("/denuncias/:id", a.publicReportDetailHandler)
		api.GET("/categorias", a.publicCategoriesHandler)

		auth := api.Group("/admin/auth")
		{
			auth.POST("/login", a.adminLoginHandler)
			auth.POST("/logout", a.adminLogoutHandler)
			auth.GET("/session", a.adminSessionHandler)
			auth.POST("/password-reset/request", a.passwordResetRequestHandler)
			auth.POST("/password-reset/confirm", a.passwordResetConfirmHandler)
		}

		admin := api.Group("/admin")
		admin.Use(a.requireAdminSession())
		{
			admin.GET("/denuncias", a.adminReportsHandler)
			admin.POST("/denuncias/:id/status", a.adminUpdateStatusHandler)
			admin.GET("/denuncias/mapa", a.adminMapReportsHandler)
			admin.GET("/denuncias/export/csv", a.exportCSVHandler)
			admin.GET("/denuncias/export/pdf", a.exportPDFHandler)
			admin.GET("/categorias", a.adminCategoriesHandler)
			admin.POST("/categorias", a.adminCreateCategoryHandler)
			admin.DELETE("/categorias/:id", a.adminDeleteCategoryHandler)
		}
	}
}

func loadConfig() (*Config, error) {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		host := valueFromEnvKeys("PGHOST", "POSTGRES_HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		port := valueFromEnvKeys("PGPORT", "POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		dbname := valueFromEnvKeys("PGDATABASE", "POSTGRES_DB")
		user := valueFromEnvKeys("PGUSER", "POSTGRES_USER")
		password := valueFromEnvKeys("PGPASSWORD", "POSTGRES_PASSWORD")
		sslmode := valueFromEnvKeys("PGSSLMODE", "POSTGRES_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		if dbname != "" && user != "" {
			databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbname, sslmode)
		}
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or PG*/POSTGRES_* variables must be configured")
	}

	secret := strings.TrimSpace(os.Getenv("APP_SIGNING_SECRET"))
	if len(secret) < 16 {
		return nil, fmt.Errorf("APP_SIGNING_SECRET must be at least 16 characters")
	}

	publicBase := strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL"))
	if publicBase == "" {
		publicBase = "http://localhost:8080"
	}
	publicBase = strings.TrimRight(publicBase, "/")

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	cfg := &Config{
		Addr:                   valueOrDefault("GIN_ADDR", ":8080"),
		Env:                    env,
		DatabaseURL:            databaseURL,
		DataRoot:               valueOrDefault("DATA_ROOT", "/var/lib/ecodenuncia"),
		PublicBaseURL:          publicBase,
		AppSigningSecret:       secret,
		TimeZone:               valueOrDefault("TIME_ZONE", "America/Sao_Paulo"),
		BootstrapAdminEmail:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapAdminPassword: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")),
		ResendAPIKey:           strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		MailerFromAddresses: map[string]string{
			"resend": valueOrDefault("MAILER_FROM_ADDRESS_RESEND", "noreply@mail.ecodenuncia.org"),
			"log":    valueOrDefault("MAILER_FROM_ADDRESS_LOG", "noreply@ecodenuncia.local"),
		},
	}

	return cfg, nil
}

func loadDotEnvFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), "\"")
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
	return nil
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

func (a *App) runMigrations(ctx context.Context) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return err
	}

	if _, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		var exists bool
		if err := a.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, file).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		content, err := migrationFiles.ReadFile(filepath.Join("migrations", file))
		if err != nil {
			return err
		}

		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, file); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		a.log.Info("applied migration", "file", file)
	}

	return nil
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
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
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

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
}
