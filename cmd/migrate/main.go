package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"scrapebot/internal/constants"
	"scrapebot/internal/migrations"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	dbPath := flag.String("db", constants.DefaultQueueDBPath, "Path to the local queue database")
	flag.Parse()

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		log.Fatalf("Database file not found: %s", *dbPath)
	}

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	applied, err := migrations.Apply(context.Background(), db)
	for _, name := range applied {
		fmt.Printf("Applied %s\n", name)
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if len(applied) == 0 {
		fmt.Println("Schema is up to date")
		return
	}
	fmt.Println("Database schema updated. You can now restart scrapebot.")
}
