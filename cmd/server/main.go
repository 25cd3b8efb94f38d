package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quidbooks/server/internal/api"
	"github.com/quidbooks/server/internal/auth"
	"github.com/quidbooks/server/internal/config"
	"github.com/quidbooks/server/internal/repository"
	"github.com/quidbooks/server/internal/service"
	"github.com/quidbooks/server/internal/utils"
)

func main() {
	logger := utils.NewLogger()

	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewSQLRepository(db)

	// Create service
	svc := service.NewDefaultService(repo, auth.NewBcryptHasher(), cfg.Auth.JWTSecret)

	// Create API handler
	handler := api.NewHandler(svc, logger)

	// Set up Gin router
	router := gin.Default()
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting server on %s (driver=%s)", serverAddr, cfg.Database.Driver)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
