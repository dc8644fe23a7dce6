// seed inserts a handful of test accounts into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nbekov/account-service/internal/auth"
	"github.com/nbekov/account-service/internal/infrastructure/postgres"
)

type account struct {
	username string
	email    string
	password string
}

var accounts = []account{
	{"alice", "alice@test.local", "secret1"},
	{"bob", "bob@test.local", "hunter22"},
	{"carol", "carol@test.local", "correct-horse-battery"},
	{"dave", "dave@test.local", "p4ssw0rd!"},
	{"erin", "erin@test.local", "letmein-please"},
}

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

	for _, a := range accounts {
		hash, err := auth.HashPassword(a.password)
		if err != nil {
			log.Fatalf("hash password for %s: %v", a.email, err)
		}

		tag, err := pool.Exec(ctx, `
			INSERT INTO users (username, email, password_hash)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO NOTHING`,
			a.username, a.email, hash,
		)
		if err != nil {
			log.Fatalf("insert %s: %v", a.email, err)
		}
		if tag.RowsAffected() == 0 {
			fmt.Printf("skipped %s (already exists)\n", a.email)
			continue
		}
		fmt.Printf("seeded %s / %s\n", a.username, a.email)
	}
}
