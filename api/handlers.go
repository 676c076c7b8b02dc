// Package api 暴露推荐服务的 HTTP 接口。
//
// 约定：推荐类接口永远返回 200 和合法 JSON（内部失败表现为空列表），
// 只有请求本身非法（参数、鉴权）才返回 4xx。
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/engine"
	"github.com/rushteam/shoprec/track"
)

// Handlers 持有各端点依赖的协作方。
type Handlers struct {
	Engine   *engine.Engine
	Ingestor *track.Ingestor
	Logger   *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

type recommendationsResponse struct {
	Recommendations []core.Recommendation `json:"recommendations"`
	Count           int                   `json:"count"`
}

// Recommendations 处理 GET /recommendations。
// 匿名请求走热门链路，带身份的请求走个性化链路。
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	scene := r.URL.Query().Get("type")
	if scene == "" {
		scene = engine.SceneMixed
	}
	switch scene {
	case engine.SceneMixed, engine.SceneContent, engine.SceneCollaborative,
		engine.SceneTrending, engine.SceneNew:
	default:
		writeError(w, http.StatusBadRequest, "unknown type "+scene)
		return
	}

	recs := h.Engine.Recommend(r.Context(), UserID(r.Context()), scene, limitParam(r))
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recs, Count: len(recs)})
}

// ProductRecommendations 处理 GET /recommendations/product/{productID}。
func (h *Handlers) ProductRecommendations(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "missing productID")
		return
	}
	recs := h.Engine.ForProduct(r.Context(), productID, UserID(r.Context()))
	writeJSON(w, http.StatusOK, recs)
}

type trackRequest struct {
	Action    string `json:"action"`
	ProductID string `json:"productId"`
	Query     string `json:"query"`
	Duration  int    `json:"duration"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// Track 处理 POST /recommendations/track。
// 用户身份来自 token，不信任请求体里的用户字段。
func (h *Handlers) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ev := core.NewEvent(UserID(r.Context()), core.EventKind(req.Action))
	ev.ProductID = req.ProductID
	ev.Query = req.Query
	ev.Duration = req.Duration
	ev.Quantity = req.Quantity
	ev.Size = req.Size
	ev.Color = req.Color

	result, err := h.Ingestor.Record(r.Context(), ev)
	if err != nil {
		if core.IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "track failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Realtime 处理 GET /recommendations/realtime：先失效缓存再重算。
func (h *Handlers) Realtime(w http.ResponseWriter, r *http.Request) {
	recs := h.Engine.Realtime(r.Context(), UserID(r.Context()), limitParam(r))
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recs, Count: len(recs)})
}

// Stats 处理 GET /recommendations/stats：调用方自己的互动概览。
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Stats(r.Context(), UserID(r.Context())))
}

// Analytics 处理 GET /recommendations/admin/analytics。
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.AdminAnalytics(r.Context()))
}

// Healthz 是探活端点。
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
