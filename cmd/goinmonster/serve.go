package goinmonster

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/pflag"

	"github.com/eddieafk/bifrostql/config"
	"github.com/eddieafk/bifrostql/engine"
	"github.com/eddieafk/bifrostql/handler"
	"github.com/eddieafk/bifrostql/logging"
	"github.com/eddieafk/bifrostql/schema"
	"github.com/eddieafk/bifrostql/sql/dialect"
	"github.com/eddieafk/bifrostql/transport"
)

// RunServe loads goinmonster.yaml, introspects the configured database,
// builds the GraphQL schema BifrostQL derives from it, and blocks serving
// HTTP and WebSocket traffic against that schema until the process is
// killed. This is the only command that keeps a connection open; `init`
// and `generate` are both one-shot.
func RunServe() error {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	configPath := flags.String("config", "goinmonster.yaml", "path to the goinmonster YAML config file")
	if err := flags.Parse(os.Args[2:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.For("serve")

	d, ok := dialect.ByName(cfg.Database.Dialect)
	if !ok {
		return fmt.Errorf("unknown database dialect %q", cfg.Database.Dialect)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	reader := schema.NewReader(db, d)
	model, err := reader.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to introspect database: %w", err)
	}
	log.WithField("tables", len(model.Tables())).Info("introspected database model")

	eng := engine.New(model, db, d)
	executableSchema, err := eng.BuildSchema()
	if err != nil {
		return fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	srv := handler.NewWithConfig(executableSchema, handler.Config{
		EnableIntrospection:  true,
		EnablePlayground:     true,
		PlaygroundPath:       "/playground",
		RequestTimeout:       time.Duration(cfg.Server.RequestTimeout) * time.Second,
		WebsocketInitTimeout: 15 * time.Second,
		WebsocketKeepAlive:   30 * time.Second,
	})
	srv.AddTransport(handler.NewPOST())
	srv.AddTransport(handler.NewGET())
	srv.SetWebsocketUpgrader(transport.NewUpgrader(0, 0))
	srv.SetWebsocketSessionFactory(transport.SessionFactory(cfg.Chunk.Window))
	if cfg.Auth.Secret != "" {
		srv.SetAuthChecker(handler.NewJWTAuthChecker(cfg.Auth.Secret))
		log.Info("bearer-JWT auth checker installed")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := srv.ServeWebsocket(w, r); err != nil {
			log.WithError(err).Warn("websocket session ended")
		}
	})
	mux.Handle("/", srv)

	log.WithField("addr", cfg.Server.ListenAddr).Info("listening")
	return http.ListenAndServe(cfg.Server.ListenAddr, mux)
}

// openDB connects via jackc/pgx or the teacher's SQL Server path, routing
// PostgreSQL through pgxpool so connection pooling is real rather than
// database/sql's own bare pool, while still handing schema.Reader and
// mutate.Compiler the *sql.DB they're both typed against via pgx's stdlib
// adapter.
func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Dialect {
	case "postgresql", "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.DSN)
		if err != nil {
			return nil, err
		}
		db := stdlib.OpenDBFromPool(pool)
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		return db, nil
	case "sqlserver", "mssql":
		db, err := sql.Open("sqlserver", cfg.DSN)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", cfg.Dialect)
	}
}
