package portal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/healthgenie/internal/hospitalsearch"
	"github.com/joelkehle/healthgenie/internal/imaging"
	"github.com/joelkehle/healthgenie/internal/mealplan"
	"github.com/joelkehle/healthgenie/internal/medanalysis"
)

// Upload is a file staged under the upload directory by the submit handler.
type Upload struct {
	Name string
	Path string
}

// CaseInput carries everything one submitted case needs to run.
type CaseInput struct {
	CaseID      string
	XRay        *Upload
	Report      *Upload
	Location    string
	Preferences string
}

// StageError marks which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// XRayAnalyzer analyzes a prepared X-ray JPEG.
type XRayAnalyzer interface {
	Analyze(ctx context.Context, imageJPEG []byte) (medanalysis.Analysis, error)
}

// ReportAnalyzer analyzes a medical report supplied as an image or a PDF.
type ReportAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageJPEG []byte) (medanalysis.Analysis, error)
	AnalyzePDF(ctx context.Context, blob []byte) (medanalysis.Analysis, error)
}

// MealPlanner generates a meal plan from a combined analysis.
type MealPlanner interface {
	Generate(ctx context.Context, analysis medanalysis.Analysis, preferences string) (mealplan.Plan, error)
}

// HospitalFinder runs the hospital recommendation pipeline.
type HospitalFinder interface {
	RunAt(ctx context.Context, analysis hospitalsearch.MedicalAnalysis, location string) (hospitalsearch.RecommendationSet, error)
}

// Bridge runs a submitted case through the agent stack and records each
// stage outcome in the case store.
type Bridge struct {
	store     *CaseStore
	xray      XRayAnalyzer
	report    ReportAnalyzer
	meals     MealPlanner
	hospitals HospitalFinder
	tracer    trace.Tracer
}

func NewBridge(store *CaseStore, xray XRayAnalyzer, report ReportAnalyzer, meals MealPlanner, hospitals HospitalFinder) *Bridge {
	return &Bridge{
		store:     store,
		xray:      xray,
		report:    report,
		meals:     meals,
		hospitals: hospitals,
		tracer:    otel.Tracer("healthgenie/portal"),
	}
}

// Run executes every stage for one case. Analysis runs first; the meal plan
// and hospital search consume its output. A stage failure is recorded on
// that stage and never aborts the others; only a fully failed analysis takes
// the downstream stages with it.
func (b *Bridge) Run(ctx context.Context, token string, input CaseInput) {
	ctx, span := b.tracer.Start(ctx, "portal.case",
		trace.WithAttributes(attribute.String("case.id", input.CaseID)))
	defer span.End()

	combined, err := b.runAnalysis(ctx, token, input)
	if err != nil {
		b.store.Fail(token, StageAnalysis, err.Error())
		b.store.Fail(token, StageMealPlan, "analysis unavailable")
		b.store.Fail(token, StageHospitalSearch, "analysis unavailable")
		log.Printf("portal case_failed token=%s stage=%s err=%v", token, failedStage(err), err)
		return
	}
	b.store.Complete(token, StageAnalysis, medanalysis.BuildReportMarkdown(combined))

	b.runMealPlan(ctx, token, combined, input.Preferences)
	b.runHospitalSearch(ctx, token, combined, input.Location)
	log.Printf("portal case_done token=%s case=%s", token, input.CaseID)
}

// runAnalysis analyzes whichever inputs were uploaded and combines the
// results. It fails only when no input could be analyzed at all.
func (b *Bridge) runAnalysis(ctx context.Context, token string, input CaseInput) (medanalysis.Analysis, error) {
	b.store.SetExecuting(token, StageAnalysis)
	ctx, span := b.tracer.Start(ctx, "portal.analysis")
	defer span.End()

	var xrayResult, reportResult *medanalysis.Analysis
	var failures []string

	if input.XRay != nil {
		a, err := b.analyzeXRay(ctx, *input.XRay)
		if err != nil {
			log.Printf("portal xray_failed token=%s file=%s err=%v", token, input.XRay.Name, err)
			failures = append(failures, fmt.Sprintf("x-ray: %v", err))
		} else {
			xrayResult = &a
		}
	}
	if input.Report != nil {
		a, err := b.analyzeReport(ctx, *input.Report)
		if err != nil {
			log.Printf("portal report_failed token=%s file=%s err=%v", token, input.Report.Name, err)
			failures = append(failures, fmt.Sprintf("report: %v", err))
		} else {
			reportResult = &a
		}
	}

	if xrayResult == nil && reportResult == nil {
		reason := "no input analyzed"
		if len(failures) > 0 {
			reason = strings.Join(failures, "; ")
		}
		return medanalysis.Analysis{}, &StageError{Stage: StageAnalysis, Err: errors.New(reason)}
	}
	span.SetAttributes(
		attribute.Bool("analysis.xray", xrayResult != nil),
		attribute.Bool("analysis.report", reportResult != nil),
	)
	return medanalysis.Combine(xrayResult, reportResult), nil
}

func (b *Bridge) analyzeXRay(ctx context.Context, up Upload) (medanalysis.Analysis, error) {
	blob, err := os.ReadFile(up.Path)
	if err != nil {
		return medanalysis.Analysis{}, fmt.Errorf("read upload: %w", err)
	}
	jpeg, err := imaging.PrepareForModel(blob)
	if err != nil {
		return medanalysis.Analysis{}, err
	}
	return b.xray.Analyze(ctx, jpeg)
}

func (b *Bridge) analyzeReport(ctx context.Context, up Upload) (medanalysis.Analysis, error) {
	blob, err := os.ReadFile(up.Path)
	if err != nil {
		return medanalysis.Analysis{}, fmt.Errorf("read upload: %w", err)
	}
	if medanalysis.IsPDF(blob) || strings.EqualFold(filepath.Ext(up.Name), ".pdf") {
		return b.report.AnalyzePDF(ctx, blob)
	}
	jpeg, err := imaging.PrepareForModel(blob)
	if err != nil {
		return medanalysis.Analysis{}, err
	}
	return b.report.AnalyzeImage(ctx, jpeg)
}

func (b *Bridge) runMealPlan(ctx context.Context, token string, analysis medanalysis.Analysis, preferences string) {
	b.store.SetExecuting(token, StageMealPlan)
	ctx, span := b.tracer.Start(ctx, "portal.meal-plan")
	defer span.End()

	plan, err := b.meals.Generate(ctx, analysis, preferences)
	if err != nil {
		log.Printf("portal meal_plan_failed token=%s err=%v", token, err)
		b.store.Fail(token, StageMealPlan, err.Error())
		return
	}
	b.store.Complete(token, StageMealPlan, mealplan.BuildPlanMarkdown(plan))
}

func (b *Bridge) runHospitalSearch(ctx context.Context, token string, analysis medanalysis.Analysis, location string) {
	b.store.SetExecuting(token, StageHospitalSearch)
	ctx, span := b.tracer.Start(ctx, "portal.hospital-search")
	defer span.End()

	set, err := b.hospitals.RunAt(ctx, searchInput(analysis), location)
	if err != nil {
		log.Printf("portal hospital_search_failed token=%s err=%v", token, err)
		b.store.Fail(token, StageHospitalSearch, err.Error())
		return
	}
	b.store.Complete(token, StageHospitalSearch, hospitalsearch.BuildReportMarkdown(set))
}

// searchInput projects the combined analysis onto the fields the hospital
// pipeline consumes. Findings already carry symptoms and diagnoses merged
// in first-seen order.
func searchInput(a medanalysis.Analysis) hospitalsearch.MedicalAnalysis {
	return hospitalsearch.MedicalAnalysis{
		PrimaryFindings: a.Findings,
		Diagnoses:       a.Diagnoses,
		Severity:        hospitalsearch.Severity(a.Severity),
		Recommendations: strings.Join(a.Recommendations, "; "),
	}
}

func failedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "case"
}
