package main

import (
	"flag"
	"fmt"
	"log"

	"absensi/internal/auth"
	"absensi/internal/config"
)

// mktoken mints a signed bearer token for a roster uid, for ops and
// integration testing against the API.
func main() {
	uid := flag.String("uid", "", "subject uid (required)")
	role := flag.String("role", "student", "token role claim")
	flag.Parse()

	if *uid == "" {
		log.Fatal("-uid is required")
	}

	cfg := config.Load()
	pair, err := auth.Issue(*uid, *role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("token issue failed: %v", err)
	}

	fmt.Println(pair.AccessToken)
}
