package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/inkhouse/inkhouse/internal/config"
	"github.com/inkhouse/inkhouse/internal/database"
	"github.com/inkhouse/inkhouse/internal/handler"
	"github.com/inkhouse/inkhouse/internal/mail"
	"github.com/inkhouse/inkhouse/internal/middleware"
	"github.com/inkhouse/inkhouse/internal/repository"
	"github.com/inkhouse/inkhouse/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	// A missing database does not abort startup: routes answer 503 until
	// the operator fixes the connection.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Printf("database unavailable: %v", err)
		db = nil
	} else if err := database.Migrate(db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Redis backs the IP limiter; nil degrades to unlimited.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: login rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	resets := repository.NewResetTokenRepo(db)
	keys := repository.NewAPIKeyRepo(db)
	windows := repository.NewRateLimitRepo(db)
	audits := repository.NewAuditRepo(db)
	posts := repository.NewPostRepo(db)

	mailer := mail.QueuePublisher{}

	authH := handler.NewAuthHandler(cfg, users, sessions, audits)
	resetH := handler.NewPasswordResetHandler(cfg, users, resets, sessions, audits, mailer)
	keyH := handler.NewAPIKeyHandler(keys, audits)
	postH := handler.NewPostHandler(posts)
	adminH := handler.NewAdminHandler(users, audits, audits, mailer)

	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	dbGuard := middleware.RequireDB(db)
	counter := middleware.NewRedisCounter(rdb)
	loginLimit := middleware.IPRateLimit(counter, "login", cfg.LoginLimit, cfg.LoginWindow)
	signupLimit := middleware.IPRateLimit(counter, "signup", cfg.LoginLimit, cfg.LoginWindow)
	cookieAuth := middleware.CookieAuth(cfg.AccessSecret)
	apiKeyAuth := middleware.APIKeyAuth(keys, windows, users, cfg.APIKeyLimit, cfg.APIKeyWindow)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, resetH, dbGuard, loginLimit, signupLimit)
	router.RegisterAccount(e, keyH, postH, adminH, dbGuard, cookieAuth, middleware.RequireRole)
	router.RegisterAPI(e, postH, dbGuard, apiKeyAuth, middleware.RequireRole)

	// Mail worker drains the outbound queue on its own goroutine.
	go mail.StartConsumer(mail.SMTPSender{
		Addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		From: cfg.SMTPFrom,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
