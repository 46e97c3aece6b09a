package main

import (
	"os"

	"beans/internal/db"
	"beans/internal/middleware"
	"beans/internal/router"
	"beans/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, finding env vars from system")
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Initialize Database
	db.Init()

	// 点赞计数的异步对账 worker
	services.GetCounterAudit()

	r := gin.Default()
	r.Use(middleware.LoadUser())

	router.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logrus.Infof("beans server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logrus.Fatal(err)
	}
}
