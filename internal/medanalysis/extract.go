package medanalysis

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	maxPDFBytes = 10 * 1024 * 1024
	maxTextRun  = 24000
)

// ExtractionResult is extracted report text plus how it was obtained.
type ExtractionResult struct {
	Text      string
	Method    string
	Truncated bool
}

// IsPDF sniffs the PDF magic header.
func IsPDF(blob []byte) bool {
	return bytes.HasPrefix(blob, []byte("%PDF-"))
}

// ExtractPDFText pulls text out of an uploaded report PDF. The structured
// reader is tried first; scanned or malformed files fall back to printable
// byte runs. Output is truncated to a bounded prompt size.
func ExtractPDFText(blob []byte) (ExtractionResult, error) {
	if len(blob) == 0 {
		return ExtractionResult{}, errors.New("pdf is empty")
	}
	if len(blob) > maxPDFBytes {
		return ExtractionResult{}, fmt.Errorf("pdf too large: %d bytes", len(blob))
	}

	if text, err := extractWithReader(blob); err == nil && strings.TrimSpace(text) != "" {
		return truncateExtraction(text, "pdf-reader"), nil
	}

	fallback := extractPrintableText(blob)
	if strings.TrimSpace(fallback) == "" {
		return ExtractionResult{}, errors.New("no extractable text found")
	}
	return truncateExtraction(fallback, "byte-fallback"), nil
}

func extractWithReader(blob []byte) (text string, err error) {
	// The pdf package panics on some malformed files; recover into an
	// error so the byte fallback can run.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader := bytes.NewReader(blob)
	r, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func extractPrintableText(blob []byte) string {
	var runs []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if len(s) >= 24 {
			runs = append(runs, s)
		}
		b.Reset()
	}
	for _, c := range blob {
		r := rune(c)
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	joined := strings.Join(runs, "\n")
	joined = strings.ReplaceAll(joined, "\x00", "")
	joined = strings.TrimSpace(joined)
	return joined
}

func truncateExtraction(text, method string) ExtractionResult {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= maxTextRun {
		return ExtractionResult{Text: trimmed, Method: method}
	}
	prefix := trimmed[:maxTextRun]
	// Avoid cutting in the middle of a rune sequence.
	prefix = string(bytes.Runes([]byte(prefix)))
	return ExtractionResult{
		Text:      prefix + "\n\n[TRUNCATED]",
		Method:    method,
		Truncated: true,
	}
}
