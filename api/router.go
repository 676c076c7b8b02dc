package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter 组装路由。鉴权分三档：
//   - 推荐/详情页：可选（匿名降级为热门）
//   - 埋点/实时/统计：必须带身份
//   - 运营分析：管理员
func NewRouter(h *Handlers, auth *Auth) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", h.Healthz)

	r.Route("/recommendations", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)
			r.Get("/", h.Recommendations)
			r.Get("/product/{productID}", h.ProductRecommendations)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.Required)
			r.Post("/track", h.Track)
			r.Get("/realtime", h.Realtime)
			r.Get("/stats", h.Stats)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.Admin)
			r.Get("/admin/analytics", h.Analytics)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
