package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/skeehn/reverseturing/ai"
	"github.com/skeehn/reverseturing/auth"
	"github.com/skeehn/reverseturing/config"
	"github.com/skeehn/reverseturing/crypto"
	"github.com/skeehn/reverseturing/game"
	"github.com/skeehn/reverseturing/migrations"
	"github.com/skeehn/reverseturing/storage"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		// Non-browser clients send no Origin header.
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

// buildModels picks the LLM-backed judge/responder pair when an
// inference endpoint is configured, and the static pair otherwise.
func buildModels(cfg config.ModelConfig) (game.Judge, game.Responder) {
	if cfg.Endpoint == "" {
		zlog.Warn().Msg("No model endpoint configured, using static judge and responder")
		return ai.StaticJudge{}, ai.StaticResponder{}
	}
	judge := ai.NewLLMJudge(cfg.Endpoint, cfg.APIKey, cfg.JudgeModel, cfg.Timeout)
	responder := ai.NewLLMResponder(cfg.Endpoint, cfg.APIKey, cfg.ResponderModel, cfg.Timeout)
	return judge, responder
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.Output(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.PostgresURL == "" {
		zlog.Fatal().Msg("Missing postgres url")
	}
	if cfg.JWTKey == "" {
		zlog.Fatal().Msg("Missing jwt signing key")
	}

	// run migrations
	migrations.Migrate(cfg.PostgresURL)

	// Dependencies
	pgRepo, err := storage.NewPostgresRepo(context.Background(), cfg.PostgresURL, cfg.TrainingBatchSize)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to postgres")
	}
	defer pgRepo.Close()

	tokenAge := time.Hour * 24 * 7 // 7 days
	passwordHasher := crypto.NewArgon2idHasher(3, 1024*64, 32, 16, 1)
	tokenManager := crypto.NewJWTManager(cfg.JWTKey, tokenAge)

	authService := auth.NewService(pgRepo, passwordHasher, tokenManager)
	authHandler := auth.NewAuthHandler(authService, tokenAge)

	r := CreateServer(cfg.AllowedOrigins)

	{
		auth := r.Group("/auth")
		auth.POST("/signup", authHandler.SignupHandler)
		auth.POST("/login", authHandler.LoginHandler)
		auth.POST("/logout", authHandler.LogoutHandler)
		auth.GET("/refresh", authHandler.RefreshSessionHandler)
	}

	judge, responder := buildModels(cfg.Model)
	hub := game.NewHub()

	registry := game.NewRegistry(game.Config{
		MinPlayers:      cfg.MinPlayers,
		MaxPlayers:      cfg.MaxPlayers,
		ResponseTimeout: cfg.ResponseTimeout,
		VotingTimeout:   cfg.VotingTimeout,
	}, game.Deps{
		Scheduler: game.NewScheduler(),
		Prompts:   pgRepo,
		Judge:     judge,
		Responder: responder,
		Bus:       hub,
		Store:     pgRepo,
	})
	defer registry.Close()

	gameHandler := game.NewHandler(registry, hub, pgRepo, pgRepo, cfg.MaxResponseLength)
	{
		gameGroup := r.Group("/game")
		gameGroup.Use(authHandler.OptionalAuthMiddleware())

		gameGroup.GET("/join/:roomid", gameHandler.JoinRoomHandler)
		gameGroup.GET("/rooms", gameHandler.ListRoomsHandler)
		gameGroup.GET("/leaderboard", gameHandler.LeaderboardHandler)
	}

	go r.Run(fmt.Sprintf(":%d", cfg.Port))
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	zlog.Info().Int("port", cfg.Port).Msg("Server started")
	<-sigCh
	zlog.Info().Msg("SIGTERM or SIGINT received, shutting down")
}
