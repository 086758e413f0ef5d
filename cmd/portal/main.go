package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/joelkehle/healthgenie/internal/hospitalsearch"
	"github.com/joelkehle/healthgenie/internal/mealplan"
	"github.com/joelkehle/healthgenie/internal/medanalysis"
	"github.com/joelkehle/healthgenie/internal/portal"
	"github.com/joelkehle/healthgenie/internal/telemetry"
)

func main() {
	var (
		addr      = flag.String("addr", ":8090", "Portal listen address")
		webDir    = flag.String("web-dir", "", "Directory containing web UI files (default: web/ relative to binary)")
		uploadDir = flag.String("upload-dir", "./uploads", "Directory for uploaded files")
		catalog   = flag.String("catalog", "", "Optional YAML file replacing the built-in fallback hospital catalog")
		location  = flag.String("location", "", "Default hospital search location (overrides SEARCH_LOCATION)")
	)
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, "healthgenie-portal")
	if err != nil {
		log.Fatalf("telemetry init: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	vision, err := medanalysis.VisionCallerFromEnv(ctx)
	if err != nil {
		log.Fatal(err)
	}
	text, err := medanalysis.TextCallerFromEnv(ctx)
	if err != nil {
		log.Fatal(err)
	}

	xray := medanalysis.NewXRayAgent(vision)
	report := medanalysis.NewReportAgent(vision)
	meals := mealplan.NewAgent(text)
	hospitals := buildHospitalPipeline(*catalog, *location)

	web := *webDir
	if web == "" {
		exe, _ := os.Executable()
		web = filepath.Join(filepath.Dir(exe), "..", "..", "web")
		if _, err := os.Stat(web); err != nil {
			web = "web"
		}
	}

	store := portal.NewCaseStore()
	bridge := portal.NewBridge(store, xray, report, meals, hospitals)
	handler := portal.NewServer(bridge, store, web, *uploadDir)

	log.Printf("portal listening on %s (model=%s)", *addr, vision.ModelName())
	srv := &http.Server{Addr: *addr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func buildHospitalPipeline(catalogPath, location string) *hospitalsearch.Pipeline {
	if location == "" {
		location = strings.TrimSpace(os.Getenv("SEARCH_LOCATION"))
	}

	var searcher hospitalsearch.Searcher
	if key := strings.TrimSpace(os.Getenv("SERP_API_KEY")); key != "" {
		client, err := hospitalsearch.NewSerpClient(hospitalsearch.SearchConfig{APIKey: key, Location: location})
		if err != nil {
			log.Fatalf("search client: %v", err)
		}
		searcher = client
	} else {
		log.Printf("portal search_disabled reason=no_serp_api_key fallback=catalog")
	}

	var entries []hospitalsearch.CatalogEntry
	if catalogPath != "" {
		loaded, err := hospitalsearch.LoadCatalog(catalogPath)
		if err != nil {
			log.Fatalf("load catalog: %v", err)
		}
		entries = loaded
	}

	return hospitalsearch.NewPipeline(searcher, entries, hospitalsearch.PipelineConfig{
		Location: location,
		TopN:     envInt("MAX_HOSPITALS", hospitalsearch.DefaultTopN),
	})
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	if n <= 0 {
		return fallback
	}
	return n
}
