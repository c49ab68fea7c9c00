package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// expectedTables is the schema this service owns. --list reports which of
// them exist so a fresh deployment can be sanity-checked.
var expectedTables = []string{"profiles", "quotes"}

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}

	if listOnly {
		listTables(db)
		return
	}

	applyAll(db, dir)
}

func listTables(db *sql.DB) {
	present := map[string]bool{}
	rows, err := db.Query(
		"SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename = ANY($1)",
		pq.Array(expectedTables))
	if err != nil {
		log.Fatalf("list tables: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		rows.Scan(&t)
		present[t] = true
	}

	missing := 0
	for _, t := range expectedTables {
		if present[t] {
			fmt.Printf("  %-10s ok\n", t)
		} else {
			fmt.Printf("  %-10s MISSING\n", t)
			missing++
		}
	}
	if missing > 0 {
		log.Fatalf("%d table(s) missing, run migrations", missing)
	}
	log.Println("Schema complete")
}

// applyAll runs every migrations/NNN_*.sql in lexical order, each in its
// own transaction. Migrations are idempotent, so re-running the whole set
// against an existing database is safe.
func applyAll(db *sql.DB, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("read migrations dir %s: %v", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	log.Printf("Applying %d migration(s) from %s", len(files), dir)

	var failed int
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}

		fmt.Printf("  %s ... ", f)
		if err := applyOne(db, string(data)); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			failed++
			continue
		}
		fmt.Println("OK")
	}

	if failed > 0 {
		log.Fatalf("%d migration(s) failed", failed)
	}
	log.Println("Migrations complete")
}

func applyOne(db *sql.DB, stmt string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(stmt); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
