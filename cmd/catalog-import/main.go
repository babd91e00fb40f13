// Command catalog-import loads a YAML template catalog into a SQLite
// database.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
	"github.com/plugpost/plugpost/pkg/plugpost/store/sqlite"
)

func main() {
	var (
		dbPath      = flag.String("db", "", "Database path (required)")
		catalogPath = flag.String("catalog", "", "Catalog YAML file (required)")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}
	if *catalogPath == "" {
		log.Fatal("--catalog required")
	}

	ctx := context.Background()

	templates, problems, err := catalog.LoadCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	for _, p := range problems {
		log.Printf("Warning: skipping %v", p)
	}

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	imported := 0
	for _, t := range templates {
		if err := st.UpsertTemplate(ctx, t); err != nil {
			log.Printf("Failed to import template %s: %v", t.ID, err)
			continue
		}
		imported++
	}

	log.Printf("Imported %d/%d templates into %s", imported, len(templates), *dbPath)
}
