package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhoulm/feishu-oa-bot/internal/config"
	"github.com/zhoulm/feishu-oa-bot/internal/handler"
	"github.com/zhoulm/feishu-oa-bot/internal/handler/webhook"
	"github.com/zhoulm/feishu-oa-bot/internal/model/session"
	"github.com/zhoulm/feishu-oa-bot/internal/service/assistant"
	"github.com/zhoulm/feishu-oa-bot/internal/service/command"
	"github.com/zhoulm/feishu-oa-bot/internal/service/feishu"
	"github.com/zhoulm/feishu-oa-bot/internal/service/login"
	"github.com/zhoulm/feishu-oa-bot/internal/service/portal"
	"github.com/zhoulm/feishu-oa-bot/internal/service/quiz"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 飞书凭证缺失时仍可启动：URL 校验必须照常应答，事件分发返回 500。
	var messenger feishu.Messenger
	if cfg.Feishu.Enabled() {
		messenger = feishu.NewSDKMessenger(cfg.Feishu)
		log.Printf("Feishu messenger initialized, APP_ID: %s", cfg.Feishu.AppID)
	} else {
		log.Println("APP_ID 或 APP_SECRET 未配置，仅响应 URL 校验")
	}

	store := session.NewFileStore(cfg.Portal.CookieFile)
	portalClient := portal.NewClient(cfg.Portal)
	loginSvc := login.NewService(portalClient, store, messenger, cfg.Portal)
	quizSvc := quiz.NewService(portalClient, store)

	// 兜底回复是可选能力，初始化失败不影响指令功能。
	var assistantSvc *assistant.Service
	if cfg.AI.Enabled() {
		assistantSvc, err = assistant.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize assistant service: %v", err)
			log.Println("continuing without LLM fallback - 请检查 Ark 模型相关环境变量")
		} else {
			log.Println("Assistant service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，跳过兜底回复初始化")
	}

	commands := command.NewRouter(loginSvc, quizSvc, assistantSvc)
	webhookHandler := webhook.New(messenger, commands, cfg.Server.StrictBody)
	router := handler.NewRouter(webhookHandler)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Feishu OA bot listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
