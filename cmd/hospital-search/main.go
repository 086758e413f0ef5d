package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/joelkehle/healthgenie/internal/hospitalsearch"
	"github.com/joelkehle/healthgenie/internal/telemetry"
)

func main() {
	var (
		inputPath      = flag.String("input", "", "Path to a saved medical analysis JSON record")
		outputPath     = flag.String("output", "", "Path to write the recommendation markdown (defaults to stdout)")
		jsonOutputPath = flag.String("json-output", "", "Optional path to write the recommendation set JSON")
		catalogPath    = flag.String("catalog", "", "Optional YAML file replacing the built-in fallback hospital catalog")
		location       = flag.String("location", "", "Search location (overrides SEARCH_LOCATION)")
		topN           = flag.Int("top", 0, "Number of recommendations (default MAX_HOSPITALS or 5)")
	)
	flag.Parse()

	_ = godotenv.Load()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}
	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	var analysis hospitalsearch.MedicalAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		log.Fatalf("decode input JSON: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, "healthgenie-hospital-search")
	if err != nil {
		log.Fatalf("telemetry init: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	loc := *location
	if loc == "" {
		loc = strings.TrimSpace(os.Getenv("SEARCH_LOCATION"))
	}

	var searcher hospitalsearch.Searcher
	if key := strings.TrimSpace(os.Getenv("SERP_API_KEY")); key != "" {
		client, err := hospitalsearch.NewSerpClient(hospitalsearch.SearchConfig{APIKey: key, Location: loc})
		if err != nil {
			log.Fatalf("search client: %v", err)
		}
		searcher = client
	} else {
		log.Printf("hospital-search search_disabled reason=no_serp_api_key fallback=catalog")
	}

	var entries []hospitalsearch.CatalogEntry
	if *catalogPath != "" {
		entries, err = hospitalsearch.LoadCatalog(*catalogPath)
		if err != nil {
			log.Fatalf("load catalog: %v", err)
		}
	}

	n := *topN
	if n <= 0 {
		n = envInt("MAX_HOSPITALS", hospitalsearch.DefaultTopN)
	}
	pipeline := hospitalsearch.NewPipeline(searcher, entries, hospitalsearch.PipelineConfig{
		Location: loc,
		TopN:     n,
	})

	set, err := pipeline.Run(ctx, analysis)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	if err := writeMarkdown(*outputPath, hospitalsearch.BuildReportMarkdown(set)); err != nil {
		log.Fatalf("write markdown: %v", err)
	}
	if *jsonOutputPath != "" {
		b, err := json.MarshalIndent(set, "", "  ")
		if err != nil {
			log.Fatalf("encode recommendation set: %v", err)
		}
		if err := os.WriteFile(*jsonOutputPath, b, 0o644); err != nil {
			log.Fatalf("write json output: %v", err)
		}
	}
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
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
