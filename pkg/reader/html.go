package reader

import (
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractHTML extracts the main content of a local HTML file, preferring the
// same content-area selectors the scraper uses.
func extractHTML(path string) (string, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return "", "", err
	}

	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	if content == "" {
		content = doc.Find("body").Text()
	}

	title := strings.TrimSpace(doc.Find("title").Text())
	content = strings.Join(strings.Fields(content), " ")

	return content, title, nil
}
