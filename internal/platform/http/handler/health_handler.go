// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

const probeTimeout = 2 * time.Second

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// 依存先を確認しない軽量版で、常に ok を返します。
func Health(c *gin.Context) {
	NewHealthHandler(nil)(c)
}

// NewHealthHandler は probes の結果を含む /healthz ハンドラーを生成します。
// いずれかの依存先が失敗した場合は 503 と "degraded" を返します。
func NewHealthHandler(probes map[string]Probe) gin.HandlerFunc {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		code, status := http.StatusOK, "ok"
		checks := make(map[string]string, len(names))
		for _, name := range names {
			ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
			err := probes[name](ctx)
			cancel()
			if err != nil {
				checks[name] = err.Error()
				code, status = http.StatusServiceUnavailable, "degraded"
				continue
			}
			checks[name] = "ok"
		}

		if c.Request.Method == http.MethodHead {
			c.Status(code)
			return
		}
		body := gin.H{"status": status}
		if len(checks) > 0 {
			body["checks"] = checks
		}
		c.JSON(code, body)
	}
}
