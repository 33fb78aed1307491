// Command devtoken prints a signed staff token for local testing against
// the /v1 API.
//
//	go run ./cmd/devtoken -sub 7 -role ADMIN -ttl 8h
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/restaurant-table-sessions/internal/middleware"
	"github.com/iliyamo/restaurant-table-sessions/internal/utils"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	sub := flag.String("sub", "1", "token subject (staff id)")
	role := flag.String("role", middleware.RoleStaff, "STAFF or ADMIN")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal().Msg("JWT_SECRET is not set")
	}
	r := strings.ToUpper(*role)
	if r != middleware.RoleStaff && r != middleware.RoleAdmin {
		log.Fatal().Str("role", *role).Msg("role must be STAFF or ADMIN")
	}

	tok, err := utils.NewAccessToken(secret, *sub, r, *ttl, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("sign token")
	}
	log.Info().Time("expires", tok.Exp).Str("role", r).Msg("token issued")
	fmt.Println(tok.Token)
}
