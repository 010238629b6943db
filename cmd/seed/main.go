// seed inserts a verified dev user into the local database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jobportal/auth-service/internal/infrastructure/postgres"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedEmail    = "seed@test.local"
	seedPassword = "seed-password-1"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	// Upsert a verified local user so login works without the OTP dance
	var userID string
	err = pool.QueryRow(ctx, `
		INSERT INTO user_auth (email, name, password_hash, user_type, provider, is_verified)
		VALUES ($1, 'Seed User', $2, 'applicant', 'local', TRUE)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = NOW()
		RETURNING id`,
		seedEmail, string(hash),
	).Scan(&userID)
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO user_profile (user_id, email, name, user_type)
		VALUES ($1, $2, 'Seed User', 'applicant')
		ON CONFLICT (user_id) DO NOTHING`,
		userID, seedEmail,
	)
	if err != nil {
		log.Fatalf("upsert profile: %v", err)
	}

	fmt.Printf("seeded user %s\n", userID)
	fmt.Printf("login with:\n")
	fmt.Printf("  curl -X POST localhost:8080/login -d '{\"email\":%q,\"password\":%q}' -H 'Content-Type: application/json'\n",
		seedEmail, seedPassword)
}
