package hospitalsearch

import (
	"context"
	"errors"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "healthgenie/hospitalsearch"

// Searcher executes one search query. Implementations report ErrAuthFailed
// for credential problems and ErrNoResults for an empty result list.
type Searcher interface {
	Search(ctx context.Context, query string) ([]CandidateInstitution, error)
}

type PipelineConfig struct {
	Location   string
	TopN       int
	MaxQueries int
	Scoring    ScoringConfig
}

// Pipeline wires extraction, query building, search, and ranking into one
// recommendation flow. A nil searcher means external search is not configured
// and the fallback catalog is used directly.
type Pipeline struct {
	searcher  Searcher
	catalog   []CatalogEntry
	extractor *Extractor
	cfg       PipelineConfig
}

func NewPipeline(searcher Searcher, catalog []CatalogEntry, cfg PipelineConfig) *Pipeline {
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = DefaultMaxQueries
	}
	if cfg.Scoring == (ScoringConfig{}) {
		cfg.Scoring = DefaultScoring()
	}
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}
	return &Pipeline{searcher: searcher, catalog: catalog, extractor: NewExtractor(), cfg: cfg}
}

// Run builds the search strategy from the analysis, gathers candidates, and
// returns the ranked recommendation set. Query failures never abort the run;
// the only error returned is context cancellation.
func (p *Pipeline) Run(ctx context.Context, analysis MedicalAnalysis) (RecommendationSet, error) {
	return p.RunAt(ctx, analysis, "")
}

// RunAt is Run with a per-request location. An empty location uses the
// configured default.
func (p *Pipeline) RunAt(ctx context.Context, analysis MedicalAnalysis, location string) (RecommendationSet, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hospitalsearch.run")
	defer span.End()

	if location == "" {
		location = p.cfg.Location
	}
	strategy := p.extractor.ExtractStrategy(analysis, location)
	strategy.SearchTerms = BuildQueries(strategy, p.cfg.MaxQueries)

	pool, fallbackUsed, err := p.gatherCandidates(ctx, strategy)
	if err != nil {
		return RecommendationSet{Strategy: strategy}, err
	}

	recs, total := Rank(pool, strategy, p.cfg.Scoring, p.cfg.TopN)
	set := RecommendationSet{
		Recommendations: recs,
		Strategy:        strategy,
		TotalCandidates: total,
		Basis:           recommendationBasis(strategy),
		FallbackUsed:    fallbackUsed,
	}
	if len(recs) == 0 {
		set.Basis = "no hospitals found for the given criteria"
	}
	span.SetAttributes(
		attribute.Int("hospitalsearch.queries", len(strategy.SearchTerms)),
		attribute.Int("hospitalsearch.candidates", total),
		attribute.Bool("hospitalsearch.fallback", fallbackUsed),
	)
	return set, nil
}

// gatherCandidates runs every query with per-query failure isolation. An
// authentication failure stops further querying and discards partial results.
// An empty pool at the end falls back to the catalog in full.
func (p *Pipeline) gatherCandidates(ctx context.Context, strategy SearchStrategy) ([]CandidateInstitution, bool, error) {
	if p.searcher == nil {
		log.Printf("hospital-search external search not configured, using catalog")
		return CatalogCandidates(p.catalog), true, nil
	}

	pool := []CandidateInstitution{}
	for _, query := range strategy.SearchTerms {
		found, err := p.searcher.Search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			if errors.Is(err, ErrAuthFailed) {
				log.Printf("hospital-search stopping external search err=%v", err)
				pool = nil
				break
			}
			if errors.Is(err, ErrNoResults) {
				log.Printf("hospital-search query empty query=%q", query)
				continue
			}
			log.Printf("hospital-search query failed query=%q err=%v", query, err)
			continue
		}
		pool = append(pool, found...)
	}
	if len(pool) == 0 {
		log.Printf("hospital-search no external results, using catalog")
		return CatalogCandidates(p.catalog), true, nil
	}
	return pool, false, nil
}

// recommendationBasis summarizes what drove the recommendations in one line.
func recommendationBasis(strategy SearchStrategy) string {
	parts := []string{}
	if len(strategy.Conditions) > 0 {
		top := strategy.Conditions
		if len(top) > 2 {
			top = top[:2]
		}
		parts = append(parts, "Based on conditions: "+strings.Join(top, ", "))
	}
	if len(strategy.Specialties) > 0 {
		parts = append(parts, "Requiring specialties: "+strings.Join(strategy.Specialties, ", "))
	}
	if strategy.Urgency == UrgencyUrgent {
		parts = append(parts, "Prioritizing emergency-capable hospitals")
	} else if strategy.Severity == SeveritySevere {
		parts = append(parts, "Focusing on top-tier medical centers")
	}
	if len(parts) == 0 {
		return "General hospital recommendations"
	}
	return strings.Join(parts, "; ")
}
