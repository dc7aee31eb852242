package goinmonster

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/eddieafk/bifrostql/config"
	"github.com/eddieafk/bifrostql/schema"
	"github.com/eddieafk/bifrostql/sql/dialect"
)

// Config is the generate-time alias of the module's ambient configuration.
type Config = config.Config

// RunGenerate connects to the database goinmonster.yaml describes,
// introspects it into a Model, and prints the GraphQL SDL BifrostQL derives
// from that Model. Unlike the teacher's original `generate`, which parsed
// an author-written .graphqls file and wrote Go resolver/server stub files
// to disk, there is no authored schema here to parse: the SDL this prints
// is exactly what `serve` builds its live schema from, so `generate` is a
// preview of what a client would see, not a codegen step a build depends on.
func RunGenerate() error {
	flags := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	configPath := flags.String("config", "goinmonster.yaml", "path to the goinmonster YAML config file")
	if err := flags.Parse(os.Args[2:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	d, ok := dialect.ByName(cfg.Database.Dialect)
	if !ok {
		return fmt.Errorf("unknown database dialect %q", cfg.Database.Dialect)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	reader := schema.NewReader(db, d)
	model, err := reader.Read(context.Background())
	if err != nil {
		return fmt.Errorf("failed to introspect database: %w", err)
	}

	tables := schema.TableNamesSorted(model)
	fmt.Printf("Introspected %d table(s):\n", len(tables))
	for _, name := range tables {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println()

	fmt.Println(schema.BuildSDL(model))
	return nil
}
