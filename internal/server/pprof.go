package server

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StartPprofServer serves the runtime profiles on a separate port. Keep it
// off the public listener; reach it internally or via an SSH tunnel.
func StartPprofServer(addr string, logger *zap.Logger) {
	profiler := gin.New()
	pprof.Register(profiler)

	go func() {
		logger.Info("Starting pprof server", zap.String("addr", addr))
		if err := profiler.Run(addr); err != nil {
			logger.Error("pprof server stopped", zap.Error(err))
		}
	}()
}
