package main

import (
	"fmt"
	"log"
	"os"

	"community_chat_client/internal/devserver"
	"community_chat_client/pkg/config"
	"community_chat_client/pkg/logger"
	"community_chat_client/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.DevServer, config.EnvConfig.DevServerLogPath)
	cfg := config.LoadConfig[config.DevServer](config.EnvConfig.DevServer, config.EnvConfig.DevServerYAMLPath)

	store := devserver.NewStore()
	devserver.SeedDemoUsers(store)
	hub := devserver.NewHub(store, logger.Log)

	// hand out session tokens for the seeded users so two CLI clients
	// can talk to each other out of the box
	for _, userID := range []string{"alice", "bob"} {
		jwt, err := token.GenerateJWT(userID, "member", "dev_server")
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("generate dev token for %s: %v", userID, err))
		}
		log.Printf("dev token %s: %s", userID, jwt)
	}

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.DevServerLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	devserver.RegisterRoutes(r, store, hub, logger.Log)

	port := ":" + cfg.Port
	log.Printf("Dev chat server listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
