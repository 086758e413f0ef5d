package portal

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joelkehle/healthgenie/internal/hospitalsearch"
	"github.com/joelkehle/healthgenie/internal/mealplan"
	"github.com/joelkehle/healthgenie/internal/medanalysis"
)

func TestBridgeRunAllStages(t *testing.T) {
	store := NewCaseStore()
	xray := &fakeXRay{analysis: medanalysis.Analysis{
		Findings:  []string{"Pneumonia"},
		Diagnoses: []string{"Lobar pneumonia"},
		Severity:  medanalysis.SeveritySevere,
	}}
	report := &fakeReportAnalyzer{pdfAnalysis: medanalysis.Analysis{
		Findings:    []string{"Elevated WBC"},
		Medications: []string{"Amoxicillin 500mg"},
	}}
	planner := &fakePlanner{plan: planWith("Oatmeal with fruits")}
	finder := &fakeFinder{set: recommendationSet("AIIMS New Delhi")}

	bridge := NewBridge(store, xray, report, planner, finder)
	token := store.Create("HC-1")
	bridge.Run(context.Background(), token, CaseInput{
		CaseID:   "HC-1",
		XRay:     stageTestPNG(t, "chest.png"),
		Report:   stageTestPDF(t, "labs.pdf"),
		Location: "Delhi",
	})

	snap, _ := store.Snapshot(token)
	if snap.Status != "completed" {
		t.Fatalf("case status = %q, want completed", snap.Status)
	}

	if xray.calls != 1 {
		t.Fatalf("xray calls = %d, want 1", xray.calls)
	}
	if !bytes.HasPrefix(xray.lastImage, []byte{0xFF, 0xD8}) {
		t.Fatal("xray agent did not receive a prepared JPEG")
	}
	if report.pdfCalls != 1 || report.imageCalls != 0 {
		t.Fatalf("report calls pdf=%d image=%d, want pdf only", report.pdfCalls, report.imageCalls)
	}

	if got := planner.gotAnalysis.Findings; len(got) != 2 || got[0] != "Pneumonia" || got[1] != "Elevated WBC" {
		t.Fatalf("planner received findings %v, want merged combination", got)
	}
	if finder.gotLocation != "Delhi" {
		t.Fatalf("finder location = %q, want Delhi", finder.gotLocation)
	}
	if got := finder.gotAnalysis.Severity; got != hospitalsearch.Severity(medanalysis.SeveritySevere) {
		t.Fatalf("finder severity = %q, want severe", got)
	}

	analysisReport, _ := store.StageReport(token, StageAnalysis)
	if !strings.Contains(analysisReport, "# Medical Analysis") || !strings.Contains(analysisReport, "Pneumonia") {
		t.Fatalf("analysis report missing content:\n%s", analysisReport)
	}
	mealReport, _ := store.StageReport(token, StageMealPlan)
	if !strings.Contains(mealReport, "# Personalized Meal Plan") || !strings.Contains(mealReport, "Oatmeal with fruits") {
		t.Fatalf("meal report missing content:\n%s", mealReport)
	}
	hospitalReport, _ := store.StageReport(token, StageHospitalSearch)
	if !strings.Contains(hospitalReport, "# Hospital Recommendations") || !strings.Contains(hospitalReport, "AIIMS New Delhi") {
		t.Fatalf("hospital report missing content:\n%s", hospitalReport)
	}
}

func TestBridgeXRayFailureStillRunsDownstream(t *testing.T) {
	store := NewCaseStore()
	xray := &fakeXRay{err: errors.New("model unavailable")}
	report := &fakeReportAnalyzer{pdfAnalysis: medanalysis.Analysis{
		Findings:  []string{"Elevated HbA1c"},
		Diagnoses: []string{"Type 2 diabetes"},
	}}
	planner := &fakePlanner{plan: planWith("Vegetable khichdi")}
	finder := &fakeFinder{set: recommendationSet("Apollo Chennai")}

	bridge := NewBridge(store, xray, report, planner, finder)
	token := store.Create("HC-2")
	bridge.Run(context.Background(), token, CaseInput{
		CaseID: "HC-2",
		XRay:   stageTestPNG(t, "chest.png"),
		Report: stageTestPDF(t, "labs.pdf"),
	})

	snap, _ := store.Snapshot(token)
	if snap.Stages[StageAnalysis].Status != StatusCompleted {
		t.Fatalf("analysis stage = %+v, want completed on the report side alone", snap.Stages[StageAnalysis])
	}
	if planner.calls != 1 || finder.calls != 1 {
		t.Fatalf("downstream calls planner=%d finder=%d, want 1 each", planner.calls, finder.calls)
	}
	if got := planner.gotAnalysis.Diagnoses; len(got) != 1 || got[0] != "Type 2 diabetes" {
		t.Fatalf("planner diagnoses = %v", got)
	}
}

func TestBridgeFailsCaseWhenNoAnalysisSucceeds(t *testing.T) {
	store := NewCaseStore()
	xray := &fakeXRay{err: errors.New("model unavailable")}
	planner := &fakePlanner{plan: planWith("unused")}
	finder := &fakeFinder{set: recommendationSet("unused")}

	bridge := NewBridge(store, xray, &fakeReportAnalyzer{}, planner, finder)
	token := store.Create("HC-3")
	bridge.Run(context.Background(), token, CaseInput{
		CaseID: "HC-3",
		XRay:   stageTestPNG(t, "chest.png"),
	})

	snap, _ := store.Snapshot(token)
	if snap.Status != "error" {
		t.Fatalf("case status = %q, want error", snap.Status)
	}
	st := snap.Stages[StageAnalysis]
	if st.Status != StatusError || !strings.Contains(st.Error, "x-ray:") {
		t.Fatalf("analysis stage = %+v", st)
	}
	for _, stage := range []string{StageMealPlan, StageHospitalSearch} {
		if got := snap.Stages[stage]; got.Status != StatusError || got.Error != "analysis unavailable" {
			t.Fatalf("stage %s = %+v, want analysis unavailable", stage, got)
		}
	}
	if planner.calls != 0 || finder.calls != 0 {
		t.Fatalf("downstream ran despite failed analysis planner=%d finder=%d", planner.calls, finder.calls)
	}
}

func TestBridgeMealPlanFailureIsIsolated(t *testing.T) {
	store := NewCaseStore()
	xray := &fakeXRay{analysis: medanalysis.Analysis{Findings: []string{"Fracture"}}}
	planner := &fakePlanner{err: errors.New("generation failed")}
	finder := &fakeFinder{set: recommendationSet("Fortis Gurgaon")}

	bridge := NewBridge(store, xray, &fakeReportAnalyzer{}, planner, finder)
	token := store.Create("HC-4")
	bridge.Run(context.Background(), token, CaseInput{CaseID: "HC-4", XRay: stageTestPNG(t, "arm.png")})

	snap, _ := store.Snapshot(token)
	if snap.Stages[StageMealPlan].Status != StatusError {
		t.Fatalf("meal-plan stage = %+v, want error", snap.Stages[StageMealPlan])
	}
	if snap.Stages[StageHospitalSearch].Status != StatusCompleted {
		t.Fatalf("hospital-search stage = %+v, want completed despite meal-plan failure", snap.Stages[StageHospitalSearch])
	}
}

func TestBridgeReportImageUsesVisionPath(t *testing.T) {
	store := NewCaseStore()
	report := &fakeReportAnalyzer{imageAnalysis: medanalysis.Analysis{Findings: []string{"Scanned note"}}}
	planner := &fakePlanner{plan: planWith("Dal with rice")}
	finder := &fakeFinder{set: recommendationSet("Max Saket")}

	bridge := NewBridge(store, &fakeXRay{}, report, planner, finder)
	token := store.Create("HC-5")
	bridge.Run(context.Background(), token, CaseInput{CaseID: "HC-5", Report: stageTestPNG(t, "report-scan.png")})

	if report.imageCalls != 1 || report.pdfCalls != 0 {
		t.Fatalf("report calls image=%d pdf=%d, want vision path", report.imageCalls, report.pdfCalls)
	}
}

func TestBridgeUnreadableUploadFailsStage(t *testing.T) {
	store := NewCaseStore()
	bridge := NewBridge(store, &fakeXRay{}, &fakeReportAnalyzer{}, &fakePlanner{}, &fakeFinder{})
	token := store.Create("HC-6")
	bridge.Run(context.Background(), token, CaseInput{
		CaseID: "HC-6",
		XRay:   &Upload{Name: "gone.png", Path: filepath.Join(t.TempDir(), "missing.png")},
	})

	snap, _ := store.Snapshot(token)
	if snap.Stages[StageAnalysis].Status != StatusError {
		t.Fatalf("analysis stage = %+v, want error for unreadable upload", snap.Stages[StageAnalysis])
	}
}

func TestSearchInputProjection(t *testing.T) {
	in := medanalysis.Analysis{
		Findings:        []string{"Chest pain", "Acute MI"},
		Diagnoses:       []string{"Acute MI"},
		Severity:        medanalysis.SeverityCritical,
		Recommendations: []string{"Admit immediately", "Cardiology consult"},
	}
	out := searchInput(in)
	if len(out.PrimaryFindings) != 2 || out.PrimaryFindings[0] != "Chest pain" {
		t.Fatalf("PrimaryFindings = %v", out.PrimaryFindings)
	}
	if len(out.Diagnoses) != 1 || out.Diagnoses[0] != "Acute MI" {
		t.Fatalf("Diagnoses = %v", out.Diagnoses)
	}
	if out.Severity != hospitalsearch.SeverityCritical {
		t.Fatalf("Severity = %q", out.Severity)
	}
	if out.Recommendations != "Admit immediately; Cardiology consult" {
		t.Fatalf("Recommendations = %q", out.Recommendations)
	}
}

type fakeXRay struct {
	analysis  medanalysis.Analysis
	err       error
	calls     int
	lastImage []byte
}

func (f *fakeXRay) Analyze(_ context.Context, imageJPEG []byte) (medanalysis.Analysis, error) {
	f.calls++
	f.lastImage = imageJPEG
	return f.analysis, f.err
}

type fakeReportAnalyzer struct {
	imageAnalysis medanalysis.Analysis
	pdfAnalysis   medanalysis.Analysis
	err           error
	imageCalls    int
	pdfCalls      int
}

func (f *fakeReportAnalyzer) AnalyzeImage(_ context.Context, _ []byte) (medanalysis.Analysis, error) {
	f.imageCalls++
	return f.imageAnalysis, f.err
}

func (f *fakeReportAnalyzer) AnalyzePDF(_ context.Context, _ []byte) (medanalysis.Analysis, error) {
	f.pdfCalls++
	return f.pdfAnalysis, f.err
}

type fakePlanner struct {
	plan        mealplan.Plan
	err         error
	calls       int
	gotAnalysis medanalysis.Analysis
	gotPrefs    string
}

func (f *fakePlanner) Generate(_ context.Context, analysis medanalysis.Analysis, preferences string) (mealplan.Plan, error) {
	f.calls++
	f.gotAnalysis = analysis
	f.gotPrefs = preferences
	return f.plan, f.err
}

type fakeFinder struct {
	set         hospitalsearch.RecommendationSet
	err         error
	calls       int
	gotAnalysis hospitalsearch.MedicalAnalysis
	gotLocation string
}

func (f *fakeFinder) RunAt(_ context.Context, analysis hospitalsearch.MedicalAnalysis, location string) (hospitalsearch.RecommendationSet, error) {
	f.calls++
	f.gotAnalysis = analysis
	f.gotLocation = location
	return f.set, f.err
}

func planWith(breakfast string) mealplan.Plan {
	var p mealplan.Plan
	p.Days[0].Breakfast = []string{breakfast}
	return p
}

func recommendationSet(name string) hospitalsearch.RecommendationSet {
	return hospitalsearch.RecommendationSet{
		Recommendations: []hospitalsearch.RankedRecommendation{{
			Rank:           1,
			Name:           name,
			Description:    "Multispecialty hospital",
			RelevanceScore: 40,
			WhyRecommended: []string{"Premium healthcare institution"},
		}},
		TotalCandidates: 1,
		Basis:           "specialized care",
	}
}

func stageTestPNG(t *testing.T, name string) *Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return stageTestFile(t, name, buf.Bytes())
}

func stageTestPDF(t *testing.T, name string) *Upload {
	t.Helper()
	return stageTestFile(t, name, []byte("%PDF-1.4\nplaceholder report body with printable text\n%%EOF"))
}

func stageTestFile(t *testing.T, name string, blob []byte) *Upload {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatalf("write staged file: %v", err)
	}
	return &Upload{Name: name, Path: path}
}
