// Package httpserver 地面测试控制台：健康检查、指标与状态快照。
// 只在地面联调时启用，飞行配置默认关闭。
package httpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/hab-payload/internal/config"
	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/state"
	"github.com/taoyao-code/hab-payload/internal/statuscode"
)

// Server HTTP 服务封装
type Server struct {
	srv *http.Server
}

// New 创建并配置 Gin + HTTP Server，注册健康检查、指标与状态快照路由
func New(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler, readyFn func() bool, st *state.Store, q *link.TxQueue, describe *statuscode.DescribeMap) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if readyFn == nil || readyFn() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	r.GET("/api/v1/status", func(c *gin.Context) {
		conf := st.Config()
		stat := st.Status()
		c.JSON(http.StatusOK, gin.H{
			"config": gin.H{
				"cameraImageSize":     conf.CameraImageSize.String(),
				"cameraImageQuality":  conf.CameraImageQuality,
				"ssdvPacketType":      int(conf.SSDVPacketType),
				"ssdvEncodingQuality": conf.SSDVEncodingQuality,
				"ssdvCycleTimeSec":    conf.SSDVCycleTimeSec,
			},
			"status": gin.H{
				"relayEnabled":     stat.RelayEnabled,
				"ssdvEnabled":      stat.SSDVEnabled,
				"buzzerEnabled":    stat.BuzzerEnabled,
				"ssdvTransmitting": stat.SSDVTransmitting,
			},
			"link": gin.H{
				"queueDepth":    q.Len(),
				"queueCapacity": q.Capacity(),
			},
		})
	})

	// 地面站对照用的状态码描述表
	r.GET("/api/v1/codes", func(c *gin.Context) {
		if describe == nil {
			describe = statuscode.DefaultDescribeMap()
		}
		out := make(map[string]string, len(describe.Map))
		for code, desc := range describe.Map {
			out[fmt.Sprintf("0x%04X", code)] = desc
		}
		c.JSON(http.StatusOK, out)
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
