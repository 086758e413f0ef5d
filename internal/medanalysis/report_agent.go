package medanalysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Keyword vocabulary for critical-findings detection.
var (
	criticalKeywords = []string{
		"urgent", "emergency", "critical", "severe", "acute",
		"immediate", "hospitalization", "surgery", "tumor",
		"cancer", "malignant", "high risk", "abnormal",
	}
	highUrgencyTerms   = []string{"urgent", "emergency", "critical", "immediate"}
	mediumUrgencyTerms = []string{"severe", "acute", "abnormal"}
)

// ReportAgent analyzes an uploaded medical report, either as an image
// through the vision model or as a PDF through in-process text extraction
// and a text model call.
type ReportAgent struct {
	exec *CallExecutor
}

func NewReportAgent(caller ModelCaller) *ReportAgent {
	return &ReportAgent{exec: NewCallExecutor(caller)}
}

// AnalyzeImage runs the report analysis on a prepared JPEG.
func (a *ReportAgent) AnalyzeImage(ctx context.Context, imageJPEG []byte) (Analysis, error) {
	if len(imageJPEG) == 0 {
		return Analysis{}, errors.New("report image is empty")
	}
	return a.analyze(ctx, reportAnalysisPrompt, [][]byte{imageJPEG})
}

// AnalyzePDF extracts the report text in-process and runs the analysis as a
// text call.
func (a *ReportAgent) AnalyzePDF(ctx context.Context, blob []byte) (Analysis, error) {
	extraction, err := ExtractPDFText(blob)
	if err != nil {
		return Analysis{}, fmt.Errorf("extract report text: %w", err)
	}
	log.Printf("med-analysis report_pdf_extracted method=%s chars=%d truncated=%t", extraction.Method, len(extraction.Text), extraction.Truncated)
	return a.AnalyzeText(ctx, extraction.Text)
}

// AnalyzeText runs the report analysis on already-extracted report text.
func (a *ReportAgent) AnalyzeText(ctx context.Context, reportText string) (Analysis, error) {
	if strings.TrimSpace(reportText) == "" {
		return Analysis{}, errors.New("report text is empty")
	}
	return a.analyze(ctx, buildReportTextPrompt(reportText), nil)
}

func (a *ReportAgent) analyze(ctx context.Context, prompt string, images [][]byte) (Analysis, error) {
	text, metrics, err := a.exec.Run(ctx, "report-analysis", prompt, images, validateAnalysisText)
	if err != nil {
		if errors.Is(err, ErrUnusableResponse) && strings.TrimSpace(text) != "" {
			log.Printf("med-analysis report_unstructured_response attempts=%d chars=%d", metrics.Attempts, len(text))
			analysis := unstructuredAnalysis(text, fallbackReportFinding)
			analysis.Critical = IdentifyCriticalFindings(analysis)
			return analysis, nil
		}
		return Analysis{}, err
	}
	analysis := ParseAnalysis(text)
	analysis.Critical = IdentifyCriticalFindings(analysis)
	log.Printf("med-analysis report_complete findings=%d diagnoses=%d medications=%d tests=%d", len(analysis.Findings), len(analysis.Diagnoses), len(analysis.Medications), len(analysis.TestResults))
	return analysis, nil
}

// ExtractText asks the vision model for a plain OCR transcription of a
// report image.
func (a *ReportAgent) ExtractText(ctx context.Context, imageJPEG []byte) (string, error) {
	if len(imageJPEG) == 0 {
		return "", errors.New("report image is empty")
	}
	text, _, err := a.exec.Run(ctx, "report-ocr", reportOCRPrompt, [][]byte{imageJPEG}, nil)
	if err != nil {
		return "", err
	}
	return text, nil
}

// IdentifyCriticalFindings scans an analysis, including its raw response
// text, for markers that warrant escalation.
func IdentifyCriticalFindings(a Analysis) CriticalFindings {
	parts := make([]string, 0, 8)
	parts = append(parts, a.Findings...)
	parts = append(parts, a.Symptoms...)
	parts = append(parts, a.Diagnoses...)
	parts = append(parts, a.TestResults...)
	parts = append(parts, a.Recommendations...)
	parts = append(parts, a.RawText)
	text := strings.ToLower(strings.Join(parts, " "))

	cf := CriticalFindings{Urgency: UrgencyLow}
	for _, kw := range criticalKeywords {
		if strings.Contains(text, kw) {
			cf.HasCritical = true
			cf.Items = append(cf.Items, kw)
		}
	}
	switch {
	case containsAny(text, highUrgencyTerms):
		cf.Urgency = UrgencyHigh
	case containsAny(text, mediumUrgencyTerms):
		cf.Urgency = UrgencyMedium
	}
	if cf.HasCritical {
		cf.Recommendations = append(cf.Recommendations, "Consult with healthcare provider immediately")
		if cf.Urgency == UrgencyHigh {
			cf.Recommendations = append(cf.Recommendations, "Seek emergency medical attention")
		}
	}
	return cf
}

// Summary produces the compact diagnosis/symptoms/medications digest used as
// model context by downstream generators.
func Summary(a Analysis) string {
	diagnosis := "Not specified"
	if len(a.Diagnoses) > 0 {
		diagnosis = strings.Join(a.Diagnoses, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Diagnosis: %s\n", diagnosis)
	if len(a.Symptoms) > 0 {
		fmt.Fprintf(&b, "Symptoms: %s\n", strings.Join(a.Symptoms, ", "))
	}
	if len(a.Medications) > 0 {
		fmt.Fprintf(&b, "Medications: %s\n", strings.Join(a.Medications, ", "))
	}
	return strings.TrimSpace(b.String())
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
