package api

import (
	"github.com/gin-gonic/gin"

	"github.com/abhisek/atomastery/internal/logger"
)

type RouterConfig struct {
	MasteryHandler *MasteryHandler
	WalletHandler  *WalletHandler
	HealthHandler  *HealthHandler
	Logger         *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(cfg.Logger))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	users := api.Group("/users/:userId")
	{
		if cfg.MasteryHandler != nil {
			users.GET("/lessons/:lessonId/mastery", cfg.MasteryHandler.GetMastery)
			users.POST("/lessons/:lessonId/mastery", cfg.MasteryHandler.ApplyUpdate)
			users.POST("/lessons/:lessonId/grade", cfg.MasteryHandler.Grade)
		}
		if cfg.WalletHandler != nil {
			users.GET("/wallet", cfg.WalletHandler.GetWallet)
		}
	}
	return r
}
