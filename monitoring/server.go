package monitoring

import (
	"log"
	"net/http"

	"eventhub/utils"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// StartOpsServer serves /metrics and /healthz on the metrics port,
// separate from the application listener.
func StartOpsServer(port string, redisClient *redis.Client) {
	e := echo.New()

	metrics := promhttp.Handler()
	e.GET("/metrics", func(c echo.Context) error {
		metrics.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	e.GET("/healthz", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	server := &http.Server{Addr: ":" + port, Handler: e}
	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Printf("ops server stopped: %v", err)
		}
	}()
}
