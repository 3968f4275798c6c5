package main

import (
	"fmt"
	"os"

	"github.com/babisteps/admin-api/pkg/auth"
	"github.com/babisteps/admin-api/pkg/config"
)

func main() {
	config.LoadDotenv()

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	cfg, _ := config.Load()
	if cfg.APIMasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in environment or .env")
		os.Exit(1)
	}

	userID := os.Args[1]
	key, err := auth.NewKeys(cfg.JWTSecret, cfg.APIMasterSecret).GenerateHMACKey(userID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated Key for %s:\n%s\n", userID, key)
}
