package medanalysis

import (
	"context"
	"errors"
	"log"
	"strings"
)

// XRayAgent runs the radiologist analysis for an uploaded chest X-ray.
type XRayAgent struct {
	exec *CallExecutor
}

func NewXRayAgent(caller ModelCaller) *XRayAgent {
	return &XRayAgent{exec: NewCallExecutor(caller)}
}

// Analyze sends the prepared JPEG to the vision model and parses the
// sectioned response. A response that never parses degrades to a stub
// analysis carrying the raw text instead of failing the stage.
func (a *XRayAgent) Analyze(ctx context.Context, imageJPEG []byte) (Analysis, error) {
	if len(imageJPEG) == 0 {
		return Analysis{}, errors.New("x-ray image is empty")
	}
	text, metrics, err := a.exec.Run(ctx, "xray-analysis", xrayAnalysisPrompt, [][]byte{imageJPEG}, validateAnalysisText)
	if err != nil {
		if errors.Is(err, ErrUnusableResponse) && strings.TrimSpace(text) != "" {
			log.Printf("med-analysis xray_unstructured_response attempts=%d chars=%d", metrics.Attempts, len(text))
			analysis := unstructuredAnalysis(text, fallbackXRayFinding)
			analysis.Severity = deriveSeverity(text)
			analysis.Critical = IdentifyCriticalFindings(analysis)
			return analysis, nil
		}
		return Analysis{}, err
	}
	analysis := ParseAnalysis(text)
	if analysis.Severity == "" {
		analysis.Severity = deriveSeverity(text)
	}
	analysis.Critical = IdentifyCriticalFindings(analysis)
	log.Printf("med-analysis xray_complete findings=%d diagnoses=%d severity=%s confidence=%d", len(analysis.Findings), len(analysis.Diagnoses), analysis.Severity, analysis.Confidence)
	return analysis, nil
}
