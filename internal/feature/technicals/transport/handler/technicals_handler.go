// Package handler はtechnicalsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/transport/http/dto"
)

const defaultHistoryLimit = 120

// TechnicalsUsecase はテクニカル指標取得のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type TechnicalsUsecase interface {
	GetTechnicals(ctx context.Context, ticker string, forceRefresh bool) (entity.Result, bool)
	FetchWithStatus(ctx context.Context, tickers []string, forceRefresh bool) []entity.Result
}

// HistoryReader はデータベースに保存された指標行を読み出します。
type HistoryReader interface {
	Find(ctx context.Context, ticker string, limit int) ([]entity.IndicatorRow, error)
}

// TechnicalsHandler はテクニカル指標のHTTPリクエストを処理します。
type TechnicalsHandler struct {
	uc      TechnicalsUsecase
	history HistoryReader
}

// NewTechnicalsHandler は新しい TechnicalsHandler を生成します。history が nil の場合、履歴APIは 503 を返します。
func NewTechnicalsHandler(uc TechnicalsUsecase, history HistoryReader) *TechnicalsHandler {
	return &TechnicalsHandler{uc: uc, history: history}
}

// GetTechnicalsHandler は銘柄コードを受け取り、指標付き日足をJSONで返します。
//
// エンドポイント例:
// GET /technicals/:code?force=true
func (h *TechnicalsHandler) GetTechnicalsHandler(c *gin.Context) {
	code := c.Param("code")
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	res, ok := h.uc.GetTechnicals(c.Request.Context(), code, force)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid ticker"})
		return
	}
	if res.Status == entity.StatusUnavailable {
		c.JSON(http.StatusNotFound, dto.NewTechnicalsResponse(res))
		return
	}
	c.JSON(http.StatusOK, dto.NewTechnicalsResponse(res))
}

// RefreshHandler は複数銘柄の指標を更新し、銘柄ごとの取得結果を返します。
//
// エンドポイント例:
// POST /technicals/refresh {"tickers":["AAPL","MSFT"],"force":false}
func (h *TechnicalsHandler) RefreshHandler(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	results := h.uc.FetchWithStatus(c.Request.Context(), req.Tickers, req.Force)
	out := make([]dto.RefreshItem, 0, len(results))
	for _, r := range results {
		out = append(out, dto.NewRefreshItem(r))
	}
	c.JSON(http.StatusOK, out)
}

// HistoryHandler はデータベースに保存された直近の指標行を返します。
//
// エンドポイント例:
// GET /technicals/:code/history?limit=120
func (h *TechnicalsHandler) HistoryHandler(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "history store not configured"})
		return
	}
	code := c.Param("code")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 0 {
		limit = defaultHistoryLimit
	}

	rows, err := h.history.Find(c.Request.Context(), code, limit)
	if err != nil {
		slog.Error("failed to read history", "ticker", code, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to read history"})
		return
	}
	c.JSON(http.StatusOK, dto.NewTechnicalRows(rows))
}
