package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/watchroom/server/internal/controller"
	"github.com/watchroom/server/internal/repository/connection/inmemory"
	moderatorRedis "github.com/watchroom/server/internal/repository/moderator/redis"
	playerstateWs "github.com/watchroom/server/internal/repository/playerstate/ws"
	userRedis "github.com/watchroom/server/internal/repository/user/redis"
	videoRedis "github.com/watchroom/server/internal/repository/video/redis"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/redisclient"
)

type AppConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	LogLevel            string `json:"log_level"`
	MembersLimit        int    `json:"members_limit"`
	QueueLimit          int    `json:"queue_limit"`
	KickDelaySeconds    int    `json:"kick_delay_seconds"`
	StateTimeoutSeconds int    `json:"state_timeout_seconds"`
	RedisPort           int    `json:"redis_port"`
	RedisHost           string `json:"redis_host"`
	RedisPassword       string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in range 1-65535")
	}
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.QueueLimit < 1 {
		return fmt.Errorf("queue limit must be greater than 0")
	}
	if cfg.KickDelaySeconds < 0 {
		return fmt.Errorf("kick delay must not be negative")
	}
	if cfg.StateTimeoutSeconds < 1 {
		return fmt.Errorf("state timeout must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	userRepo := userRedis.NewRepo(rc, logger)
	moderatorRepo := moderatorRedis.NewRepo(rc)
	videoRepo, err := videoRedis.NewRepo(rc)
	if err != nil {
		return fmt.Errorf("failed to create video repository: %w", err)
	}
	connectionRepo := inmemory.NewRepo()
	stateRepo := playerstateWs.NewRepo()

	roomService := room.NewService(userRepo, moderatorRepo, videoRepo, connectionRepo, stateRepo, logger, &room.Config{
		MembersLimit:        cfg.MembersLimit,
		QueueLimit:          cfg.QueueLimit,
		KickDelay:           time.Duration(cfg.KickDelaySeconds) * time.Second,
		StateRequestTimeout: time.Duration(cfg.StateTimeoutSeconds) * time.Second,
	})
	controller := controller.NewController(roomService, stateRepo, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
