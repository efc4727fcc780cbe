package reader

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls plain text out of a PDF page by page. Pages that fail text
// extraction are skipped rather than failing the whole file.
func extractPDF(path string) (string, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", "", fmt.Errorf("failed to stat PDF: %w", err)
	}

	r, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", "", fmt.Errorf("failed to read PDF: %w", err)
	}

	var textBuilder strings.Builder
	pageCount := r.NumPage()

	for i := 1; i <= pageCount; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("failed to extract text from page %d of %s: %v", i, path, err)
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), "", nil
}
