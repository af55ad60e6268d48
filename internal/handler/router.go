package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhoulm/feishu-oa-bot/internal/handler/webhook"
	"github.com/zhoulm/feishu-oa-bot/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(webhookHandler *webhook.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// 飞书只按 POST 回调；其余方法回机器可读的错误体。
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Post("/api/feishu", webhookHandler.Handle)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	return r
}
