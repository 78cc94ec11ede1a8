package main

import (
	"log"

	_ "primetask/docs"
	"primetask/internal/config"
	"primetask/internal/server"
)

// @title           PrimeTask API
// @version         1.0
// @description     REST API for task management with JWT authentication and role-based access control.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("❌ Server initialization failed: %v", err)
	}

	s.Run()
}
