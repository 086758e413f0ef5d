package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joelkehle/healthgenie/internal/portal"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "Path to a markdown health report")
		outputPath = flag.String("output", "", "Path to write the rendered PDF")
		webDir     = flag.String("web-dir", "web", "Directory containing style.css")
	)
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}
	if *outputPath == "" {
		log.Fatal("missing required -output")
	}

	report, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	renderer := portal.NewChromiumPDFRenderer(*webDir)
	pdf, err := renderer.Render(ctx, string(report))
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	if err := os.WriteFile(*outputPath, pdf, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Printf("render-report wrote %s (%d bytes)", *outputPath, len(pdf))
}
