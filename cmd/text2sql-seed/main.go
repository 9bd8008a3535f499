package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/text2sql/text2sql/internal/config"
	"github.com/text2sql/text2sql/internal/database"
	"github.com/text2sql/text2sql/internal/sampledata"
)

func main() {
	direction := flag.String("direction", "up", "sample schema direction: up|down|status")
	steps := flag.Int("steps", 0, "number of versions; 0 means all for up, 1 for down")
	orders := flag.Int("orders", 200, "number of generated orders to load after up")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for generated orders")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("text2sql-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, database.DBConfig{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.ConnectionString(),
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	runner := sampledata.NewRunner()
	switch *direction {
	case "up":
		applied, err := runner.Up(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sample schema up failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("applied %d sample version(s)\n", applied)

		loaded, err := sampledata.LoadOrders(ctx, db, *seed, *orders)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load orders failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("loaded %d orders\n", loaded)
	case "down":
		rolledBack, err := runner.Down(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sample schema down failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d sample version(s)\n", rolledBack)
	case "status":
		versions, err := runner.Status(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sample schema status failed: %v\n", err)
			os.Exit(1)
		}
		for _, v := range versions {
			state := "pending"
			if v.Applied {
				state = "applied"
			}
			fmt.Printf("%06d_%s\t%s\n", v.Number, v.Name, state)
		}
	default:
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(1)
	}
}
