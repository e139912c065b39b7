package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mikemajesty/monorepo/internal/migrate"
	"github.com/mikemajesty/monorepo/internal/obs"
	"github.com/mikemajesty/monorepo/internal/store/pg"
)

func main() {
	var (
		dsn     = flag.String("dsn", os.Getenv("POSTGRES_URL"), "PostgreSQL DSN")
		dir     = flag.String("dir", "", "Directory holding sql/migrations and sql/seeds, replacing the embedded set")
		timeout = flag.Duration("timeout", time.Minute, "Overall timeout")
	)
	flag.Parse()
	log := obs.Logger()

	if *dsn == "" {
		log.Fatal().Msg("missing DSN: provide via -dsn or POSTGRES_URL")
	}
	if len(flag.Args()) == 0 {
		log.Fatal().Msg("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	st, err := pg.Open(*dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer st.Close()

	files := migrate.Embedded()
	if *dir != "" {
		files = os.DirFS(*dir)
	}
	mgr := migrate.NewManager(st.DB(), files)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatal().Str("command", flag.Arg(0)).Msg("unknown command")
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("migrate failed")
	}
}
