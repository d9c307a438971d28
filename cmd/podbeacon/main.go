// podbeacon passively scans for proximity pairing advertisements and prints a
// diagnostic report whenever the decoded state changes.
//
// This works even if the earbuds are connected to another device (like an
// iPhone), since it only listens to broadcast advertisements.
//
// Usage:
//
//	podbeacon [-config podbeacon.yaml] [-once]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"podbeacon/internal/ble"
	"podbeacon/internal/config"
	"podbeacon/internal/logger"
	"podbeacon/internal/metrics"
	"podbeacon/internal/podstate"
	"podbeacon/internal/proximity"
)

const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file")
	once := flag.Bool("once", false, "print the first decoded advertisement and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	closeLog, err := logger.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := ble.NewScanner(cfg.Adapter)
	if err != nil {
		log.Error().Err(err).Msg("failed to create scanner")
		return 1
	}
	defer scanner.Close()

	if err := scanner.StartDiscovery(); err != nil {
		log.Error().Err(err).Str("adapter", cfg.Adapter).Msg("failed to start discovery")
		return 1
	}
	log.Info().Str("adapter", cfg.Adapter).Msg("scanning for proximity pairing advertisements")

	if *once {
		return scanOnce(ctx, scanner, cfg.Scan)
	}

	if err := stream(ctx, scanner, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("scan failed")
		return 1
	}
	log.Info().Msg("stopping scanner")
	return 0
}

// scanOnce waits up to the scan window for one decodable advertisement.
func scanOnce(ctx context.Context, scanner *ble.Scanner, scan config.Scan) int {
	ctx, cancel := context.WithTimeout(ctx, scan.Window)
	defer cancel()

	for {
		adv, err := scanner.WaitFor(ctx, scan.CompanyID)
		if err != nil {
			log.Warn().Err(err).Dur("window", scan.Window).Msg("no proximity pairing advertisement found in this scan window")
			return 1
		}
		record, ok := proximity.Decode(adv.Data)
		if !ok {
			continue
		}
		printReport(record)
		return 0
	}
}

// stream runs the coordinator and the optional metrics server until ctx is done.
func stream(ctx context.Context, scanner *ble.Scanner, cfg *config.Config) error {
	key, err := cfg.Decrypt.KeyBytes()
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	coord := podstate.NewCoordinator(scanner, podstate.Options{
		CompanyID: cfg.Scan.CompanyID,
		Key:       key,
		Metrics:   m,
	})

	var last string
	coord.RegisterCallback(func(s *podstate.PodState) {
		report := proximity.Render(s.Record)
		if report == last {
			return
		}
		last = report
		printReport(s.Record)
		if s.Source == podstate.DataSourceDecrypted {
			fmt.Println(preciseLine(s))
		}
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coord.Run(ctx)
	})
	if m != nil {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metricsMux(m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("listen", cfg.Metrics.Listen).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func printReport(r proximity.Record) {
	fmt.Println()
	fmt.Println(separator)
	fmt.Println(proximity.Render(r.Redact()))
	fmt.Println(separator)
}

func preciseLine(s *podstate.PodState) string {
	return fmt.Sprintf("Precise Battery: left %s, right %s, case %s",
		levelText(s.LeftBattery), levelText(s.RightBattery), levelText(s.CaseBattery))
}

func levelText(level *int) string {
	if level == nil {
		return "--"
	}
	return fmt.Sprintf("%d%%", *level)
}
