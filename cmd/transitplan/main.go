// Command transitplan optimizes bus networks for transit-dependent riders.
//
// Usage:
//
//	transitplan [-config path] [optimize]
//	transitplan [-config path] score  -network NAME
//	transitplan [-config path] circle -network NAME
//	transitplan [-config path] derive -network NAME
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/katalvlaran/transitplan/config"
	"github.com/katalvlaran/transitplan/logger"
	"github.com/katalvlaran/transitplan/runner"
	"github.com/katalvlaran/transitplan/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "transitplan: .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "transitplan: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("transitplan", flag.ContinueOnError)
	configPath := global.String("config", "", "path to the YAML configuration (default $"+config.EnvConfig+" or "+config.DefaultPath+")")
	if err := global.Parse(args); err != nil {
		return err
	}

	cmd, rest := "optimize", global.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	switch cmd {
	case "optimize":
		return optimize(ctx, cfg, log)
	case "score", "circle", "derive":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		network := fs.String("network", "", "configured network name")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *network == "" {
			return fmt.Errorf("%s: -network is required", cmd)
		}
		return single(ctx, cfg, log, cmd, *network)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func optimize(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	st, err := store.Open(ctx, cfg.Store.DBPath, store.WithLogger(log))
	if err != nil {
		return err
	}
	defer st.Close()

	outcomes, err := runner.New(cfg, runner.WithStore(st), runner.WithLogger(log)).Run(ctx)
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Printf("%-16s failed after %d attempts: %v\n", o.Network, o.Attempts, o.Err)
			continue
		}
		fmt.Printf("%-16s original %.2f  best %.2f  accepted %d  run %s\n",
			o.Network, o.Result.OriginalScore, o.Result.Best, o.Result.Accepted, o.RunID)
	}

	return err
}

func single(ctx context.Context, cfg config.Config, log zerolog.Logger, cmd, network string) error {
	st, err := store.Open(ctx, cfg.Store.DBPath, store.WithLogger(log))
	if err != nil {
		return err
	}
	defer st.Close()
	r := runner.New(cfg, runner.WithStore(st), runner.WithLogger(log))

	switch cmd {
	case "score":
		score, err := r.Score(ctx, network)
		if err != nil {
			return err
		}
		fmt.Printf("%s: mean %.2f over %d trips\n", network, score.Mean, len(score.Trips))
	case "circle":
		rep, err := r.Circle(ctx, network)
		if err != nil {
			return err
		}
		fmt.Printf("%s: original %.2f  circle %.2f (%d routes, %s)\n", network, rep.Original, rep.Circle, rep.Routes, rep.Path)
	case "derive":
		rep, err := r.Derive(ctx, network)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d routes over %d stops (%d without coordinates)\n  plan  %s\n  stops %s\n",
			network, rep.Routes, rep.Stops, rep.Unlocated, rep.Plan, rep.Nodes)
	}

	return nil
}
