// seed inserts a handful of verified demo accounts into the local dev
// database. Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/accountd/accountd/internal/domain"
	"github.com/accountd/accountd/internal/infrastructure/postgres"
	"github.com/accountd/accountd/internal/password"
	"github.com/google/uuid"
)

const seedPassword = "seed-password-123"

type accountSpec struct {
	username  string
	email     string
	firstName string
	lastName  string
}

var accounts = []accountSpec{
	{"ada", "ada@test.local", "Ada", "Lovelace"},
	{"grace", "grace@test.local", "Grace", "Hopper"},
	{"alan", "alan@test.local", "Alan", "Turing"},
	{"edsger", "edsger@test.local", "Edsger", "Dijkstra"},
	{"barbara", "barbara@test.local", "Barbara", "Liskov"},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	if err := postgres.Migrate(ctx, dbURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)

	hash, err := password.Hash(seedPassword)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	var inserted, skipped int
	for _, spec := range accounts {
		user := &domain.User{
			ID:           uuid.NewString(),
			Username:     spec.username,
			Email:        spec.email,
			PasswordHash: hash,
			FirstName:    spec.firstName,
			LastName:     spec.lastName,
			Active:       true,
			CreatedAt:    time.Now().UnixMilli(),
		}
		err := repo.Create(ctx, user)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, domain.ErrEmailTaken), errors.Is(err, domain.ErrUsernameTaken):
			skipped++
		default:
			log.Fatalf("insert %s: %v", spec.email, err)
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Accounts created: %d  (skipped %d already existing)\n", inserted, skipped)
	fmt.Printf("  Password:         %s\n", seedPassword)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1 — log in as a seed account:")
	fmt.Println()
	fmt.Println("    curl -s -X POST http://localhost:8080/login \\")
	fmt.Println("      -H 'Content-Type: application/json' \\")
	fmt.Printf("      -d '{\"email\":\"ada@test.local\",\"password\":\"%s\"}'\n", seedPassword)
	fmt.Println()
	fmt.Println("    # Copy data.jwtToken from the response, then:")
	fmt.Println()
	fmt.Println("  Step 2 — list accounts:")
	fmt.Println()
	fmt.Println("    export TOKEN=eyJ...")
	fmt.Println("    curl -s 'http://localhost:8080/list?sort=-createdAt&limit=3' \\")
	fmt.Println("      -H \"Authorization: JWT $TOKEN\"")
}
