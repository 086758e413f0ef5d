package portal

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ChromiumPDFRenderer renders markdown reports to PDF through a headless
// Chromium instance using the portal stylesheet.
type ChromiumPDFRenderer struct {
	webDir     string
	chromePath string
	styleOnce  sync.Once
	styleCSS   string
	styleErr   error
}

func NewChromiumPDFRenderer(webDir string) *ChromiumPDFRenderer {
	return &ChromiumPDFRenderer{
		webDir:     webDir,
		chromePath: detectChromePath(),
	}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, report string) ([]byte, error) {
	htmlDoc, err := r.buildHTML(report)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;padding-right:8px;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return pdf, nil
}

func (r *ChromiumPDFRenderer) buildHTML(report string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(report), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	contentHTML := applyPrintLayoutHooks(content.String())

	styleCSS, err := r.loadStyleCSS()
	if err != nil {
		return "", err
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Health Report</title>" +
		"<style>" + styleCSS + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
		"body{background:#fff !important;padding:0.6rem;} .pdf-wrap{max-width:1000px;margin:0 auto;} .pdf-gutter{border-left:3px solid #0f766e !important;border-right:3px solid #0f766e !important;padding:0 0.65rem;} " +
		".report-viewer{background:#f8fafc !important;border:0 !important;} " +
		".report-html a{color:#1d4ed8 !important;text-decoration:underline !important;} " +
		".report-html h2[data-critical-heading='true']{color:#b91c1c !important;} " +
		".report-html blockquote{border-left:3px solid #94a3b8 !important;color:#475569 !important;margin:0.5rem 0;padding:0.2rem 0.6rem;} " +
		".report-html table{width:100% !important;border-collapse:collapse !important;border:1px solid #94a3b8 !important;font-size:0.8rem !important;} " +
		".report-html th,.report-html td{border:1px solid #94a3b8 !important;padding:0.35rem 0.45rem !important;text-align:left !important;vertical-align:top !important;} " +
		".report-html thead th{background:#f1f5f9 !important;font-weight:700 !important;} " +
		`h2[data-page-break-before="true"]{break-before:page;page-break-before:always;} ` +
		"@media print{ @page{size:auto;margin:12mm;} body{background:#fff !important;padding:0;} .pdf-wrap{max-width:none;} .report-viewer{box-shadow:none !important;} }" +
		"</style></head><body>" +
		"<div class='pdf-wrap'><div class='pdf-gutter'><section class='report-viewer'>" +
		"<div class='report-html'>" + contentHTML + "</div></section></div></div>" +
		"</body></html>", nil
}

func applyPrintLayoutHooks(contentHTML string) string {
	// Critical findings stay visually prominent in print.
	reCritical := regexp.MustCompile(`(?i)<h2([^>]*)>\s*Critical Findings\s*</h2>`)
	out := reCritical.ReplaceAllString(contentHTML, `<h2$1 data-critical-heading="true">Critical Findings</h2>`)

	// Each meal-plan day after the first starts on a fresh page.
	reDay := regexp.MustCompile(`(?i)<h2([^>]*)>\s*(Day\s+[2-9])\s*</h2>`)
	out = reDay.ReplaceAllString(out, `<h2$1 data-page-break-before="true">$2</h2>`)

	return out
}

func (r *ChromiumPDFRenderer) loadStyleCSS() (string, error) {
	r.styleOnce.Do(func() {
		b, err := os.ReadFile(filepath.Join(r.webDir, "style.css"))
		if err != nil {
			r.styleErr = fmt.Errorf("read style.css: %w", err)
			return
		}
		r.styleCSS = string(b)
	})
	return r.styleCSS, r.styleErr
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
