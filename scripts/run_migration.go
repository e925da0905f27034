package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/fakturnik/invoice-intake-service/internal/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("POSTGRES_DB_URL")
	if dbURL == "" {
		log.Fatalf("POSTGRES_DB_URL environment variable not set")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(context.Background(), database.Schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	fmt.Println("Schema applied successfully")
}
