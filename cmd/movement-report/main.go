package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/movement.report/internal/api"
	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/db"
	"github.com/banshee-data/movement.report/internal/traffic"
	"github.com/banshee-data/movement.report/internal/units"
	"github.com/banshee-data/movement.report/internal/version"
)

var (
	dbPath     = flag.String("db", "movement_data.db", "Path to the SQLite database")
	listen     = flag.String("listen", ":8080", "Listen address")
	configPath = flag.String("config", config.DefaultConfigPath, "Analysis defaults (JSON)")
	unitsFlag  = flag.String("units", units.MPS, "Speed units for API responses ("+units.GetValidUnitsString()+")")
	importPath = flag.String("import", "", "Import a dataset JSON file and exit")
	datasetID  = flag.String("dataset", "", "Dataset id for -report")
	reportName = flag.String("report", "", "Print a report for -dataset and exit (volumes, speeds, conflicts, violations, qc, all)")
	migrateCmd = flag.Bool("migrate", false, "Run a migration command from the remaining arguments and exit")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println("movement-report", version.String())
		return
	}
	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid units %q, must be one of: %s", *unitsFlag, units.GetValidUnitsString())
	}

	defaults := config.EmptyAnalysisConfig()
	if *configPath != "" {
		cfg, err := config.LoadAnalysisConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load analysis config: %v", err)
		}
		defaults = cfg
	}

	if *migrateCmd {
		database, err := db.OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
		if err := db.RunMigrateCommand(os.Stdout, database, flag.Args()); err != nil {
			db.PrintMigrateHelp(os.Stderr)
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	switch {
	case *importPath != "":
		if err := importFile(os.Stdout, database, *importPath); err != nil {
			log.Fatalf("import failed: %v", err)
		}
		return
	case *reportName != "":
		if *datasetID == "" {
			log.Fatal("-report requires -dataset")
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := runReport(ctx, os.Stdout, database, defaults, *datasetID, *reportName, *unitsFlag); err != nil {
			log.Fatalf("report failed: %v", err)
		}
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	serve(database, defaults)
}

func serve(database *db.DB, defaults *config.AnalysisConfig) {
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    *listen,
			Handler: api.NewServer(database, defaults, *unitsFlag).Handler(),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}

func importFile(w io.Writer, database *db.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	df, err := db.ReadDatasetFile(f)
	if err != nil {
		return err
	}
	if df.Name == "" {
		return errors.New("dataset name is required")
	}
	ds, err := database.ImportDataset(df)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, ds.ID)
	return err
}

// runReport writes one report, or all of them, as indented JSON. Speeds
// are converted to unit.
func runReport(ctx context.Context, w io.Writer, database *db.DB, defaults *config.AnalysisConfig, id, name, unit string) error {
	snap, cfg, err := database.LoadSnapshot(id, defaults)
	if err != nil {
		return err
	}
	if timeout := cfg.GetConflictTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var out interface{}
	switch name {
	case "volumes":
		out = traffic.ComputeVolumes(snap)
	case "speeds":
		out = traffic.ConvertSpeedStats(traffic.ComputeSpeeds(snap), unit)
	case "conflicts":
		rep, err := traffic.ComputeConflicts(ctx, snap)
		if err != nil && !errors.Is(err, traffic.ErrComputationTimeout) {
			return err
		}
		out = rep
	case "violations":
		out = traffic.ComputeViolations(snap)
	case "qc":
		out = traffic.ComputeQCSummary(snap)
	case "all":
		rep, err := traffic.ComputeAll(ctx, snap)
		if err != nil && !errors.Is(err, traffic.ErrComputationTimeout) {
			return err
		}
		rep.Speeds = traffic.ConvertSpeedStats(rep.Speeds, unit)
		out = rep
	default:
		return fmt.Errorf("unknown report %q", name)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
