// Command token prints a signed staff token for the privileged endpoints.
package main

import (
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/middleware"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	name := flag.String("name", "staff", "subject of the token")
	staff := flag.Bool("staff", true, "grant the staff claim")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	token, err := middleware.IssueToken(cfg.Auth.JWTSecret, *name, *staff, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
