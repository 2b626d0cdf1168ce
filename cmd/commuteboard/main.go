// Package main is the entry point for the commuteboard dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/commuteboard/commuteboard/internal/api"
	"github.com/commuteboard/commuteboard/internal/board"
	"github.com/commuteboard/commuteboard/internal/config"
	"github.com/commuteboard/commuteboard/internal/display"
	"github.com/commuteboard/commuteboard/internal/log"
	"github.com/commuteboard/commuteboard/internal/transit"
	"github.com/commuteboard/commuteboard/internal/weather"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (default: search config.yml, /etc/commuteboard/config.yml)")
	debug := flag.Bool("debug", false, "enable debug logging")
	once := flag.Bool("once", false, "poll once, render, and exit")
	listen := flag.String("listen", "", "serve board state as JSON on this address (e.g. :3000)")
	findStop := flag.String("find-stop", "", "look up a bus stop ID near \"lat,lon\" and exit")
	flag.Parse()

	// A missing .env is fine; keys may come from the real environment.
	_ = godotenv.Load()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("configuration error: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	busSvc := transit.NewBusService(cfg)

	if *findStop != "" {
		runFindStop(ctx, busSvc, *findStop)
		return
	}

	var alerts board.AlertFetcher
	if svc := transit.NewAlertService(cfg); svc != nil {
		alerts = svc
	}

	b := board.New(
		transit.NewSubwayService(cfg),
		busSvc,
		weather.NewService(cfg),
		alerts,
		cfg.RefreshInterval(),
	)

	term := &display.Terminal{Out: os.Stdout, Clear: !*once}

	if *once {
		b.Poll(ctx)
		term.Render(b)
		return
	}

	if *listen != "" {
		server := api.NewServer(*listen, b)
		go func() {
			log.Infof("serving board state on %s", *listen)
			if err := server.ListenAndServe(); err != nil {
				log.Errorf("http server: %v", err)
			}
		}()
	}

	go b.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n👋 Goodbye! Have a great commute!")
			return
		case <-b.Updates():
			term.Render(b)
		}
	}
}

func runFindStop(ctx context.Context, bus *transit.BusService, coords string) {
	parts := strings.SplitN(coords, ",", 2)
	if len(parts) != 2 {
		log.Error("find-stop expects \"lat,lon\"")
		os.Exit(1)
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lonErr != nil {
		log.Error("find-stop expects numeric coordinates")
		os.Exit(1)
	}

	stopID, err := bus.FindStopID(ctx, lat, lon)
	if err != nil {
		log.Errorf("finding bus stop: %v", err)
		os.Exit(1)
	}
	fmt.Println(stopID)
}
