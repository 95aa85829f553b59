package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/bootstrap"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

func main() {
	envFile := flag.String("env", ".env", "optional env file")
	repair := flag.Bool("repair", false, "correct drifting totalVotes")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	if err := run(*envFile, *repair, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(envFile string, repair bool, timeout time.Duration) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log := logging.New(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer res.Close()

	reports, err := services.NewAuditService(res.Backend, log).AuditTallies(ctx, repair)
	if err != nil {
		return err
	}

	unhealthy := 0
	for _, r := range reports {
		if !r.Healthy() {
			unhealthy++
		}
	}
	log.Info(ctx, "audit finished", "polls", len(reports), "unhealthy", unhealthy, "repair", repair)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
