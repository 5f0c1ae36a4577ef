// Command token mints a bearer token for local development and support work.
//
//	go run ./cmd/token -user <uuid> -role admin
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/stylebook/backend/internal/auth"
	"github.com/stylebook/backend/internal/config"
	"github.com/stylebook/backend/internal/models"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	userFlag := flag.String("user", "", "user id the token is issued for")
	roleFlag := flag.String("role", models.RoleCustomer, "customer, stylist or admin")
	ttlFlag := flag.Duration("ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	flag.Parse()

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		logger.Error("invalid -user", "error", err)
		os.Exit(2)
	}
	switch *roleFlag {
	case models.RoleCustomer, models.RoleStylist, models.RoleAdmin:
	default:
		logger.Error("invalid -role", "role", *roleFlag)
		os.Exit(2)
	}

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	ttl := cfg.TokenTTL
	if *ttlFlag > 0 {
		ttl = *ttlFlag
	}

	token, err := auth.NewTokens(cfg.JWTSecret, ttl).Issue(userID, *roleFlag)
	if err != nil {
		logger.Error("issue token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
