package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	technicalshandler "stock_technicals/internal/feature/technicals/transport/handler"
	"stock_technicals/internal/platform/http/handler"
)

// NewRouter builds the gin engine. gatherer may be nil to skip /metrics.
func NewRouter(technicals *technicalshandler.TechnicalsHandler, probes map[string]handler.Probe,
	gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	// 導通確認用
	health := handler.NewHealthHandler(probes)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	r.OPTIONS("/healthz", health)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// 銘柄ごとのテクニカル指標
	g := r.Group("/technicals")
	{
		g.POST("/refresh", technicals.RefreshHandler)
		g.GET("/:code", technicals.GetTechnicalsHandler)
		g.GET("/:code/history", technicals.HistoryHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
