package scraper

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Page holds the structured sections parsed from one patent detail page.
type Page struct {
	URL                        string
	Title                      string
	PublicationDate            string
	Abstract                   string
	Description                string
	Inventors                  []string
	ClassificationNumbers      []string
	ClassificationDescriptions []string
	Claims                     []string
	ForwardCites               []string
	BackwardCites              []string
}

// Parse extracts every section from the page HTML. Sections are parsed
// independently; a malformed section leaves its fields empty without
// affecting the others. Parse never fails: unparsable HTML yields an
// empty Page.
func Parse(body []byte, url string) *Page {
	page := &Page{URL: url}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		zap.L().Warn("unparsable patent page", zap.String("url", url), zap.Error(err))
		return page
	}

	parseMetadata(doc, page)
	parseClassifications(doc, page)
	// The abstract section wins over the JSON-LD description when present.
	if abstract := sectionText(doc, "abstract"); abstract != "" {
		page.Abstract = abstract
	}
	page.Description = sectionText(doc, "description")
	page.Claims = parseClaims(doc)
	page.ForwardCites, page.BackwardCites = parseCitations(doc)

	return page
}

// ldPatent is the subset of the page's JSON-LD block the pipeline uses.
type ldPatent struct {
	Name          string `json:"name"`
	DatePublished string `json:"datePublished"`
	Description   string `json:"description"`
}

// parseMetadata prefers the JSON-LD block and falls back to meta tags.
func parseMetadata(doc *goquery.Document, page *Page) {
	if raw := doc.Find(`script[type="application/ld+json"]`).First().Text(); raw != "" {
		var ld ldPatent
		if err := json.Unmarshal([]byte(raw), &ld); err == nil {
			page.Title = strings.TrimSpace(ld.Name)
			page.PublicationDate = strings.TrimSpace(ld.DatePublished)
			page.Abstract = strings.TrimSpace(ld.Description)
		} else {
			zap.L().Debug("json-ld parse failed", zap.Error(err))
		}
	}

	if page.Title == "" {
		if content, ok := doc.Find(`meta[name="DC.title"]`).First().Attr("content"); ok {
			page.Title = strings.TrimSpace(content)
		}
	}

	if content, ok := doc.Find(`meta[itemprop="publicationDate"]`).First().Attr("content"); ok {
		page.PublicationDate = strings.TrimSpace(content)
	}

	doc.Find(`[itemprop="inventor"]`).Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if name == "" {
			name, _ = sel.Attr("content")
			name = strings.TrimSpace(name)
		}
		if name != "" {
			page.Inventors = append(page.Inventors, name)
		}
	})
}

// parseClassifications walks the Classifications section's list items,
// deduplicating codes while keeping every description.
func parseClassifications(doc *goquery.Document, page *Page) {
	section := findSectionByHeading(doc, "Classifications", "")
	if section == nil {
		return
	}

	seen := make(map[string]struct{})
	section.Find(`li[itemprop="classifications"]`).Each(func(_ int, item *goquery.Selection) {
		code := strings.TrimSpace(item.Find(`span[itemprop="Code"]`).First().Text())
		if code != "" {
			if _, dup := seen[code]; !dup {
				page.ClassificationNumbers = append(page.ClassificationNumbers, code)
				seen[code] = struct{}{}
			}
		}
		if desc := strings.TrimSpace(item.Find(`span[itemprop="Description"]`).First().Text()); desc != "" {
			page.ClassificationDescriptions = append(page.ClassificationDescriptions, desc)
		}
	})
}

// sectionText extracts the text of a section identified by itemprop,
// preferring its inner content block.
func sectionText(doc *goquery.Document, itemprop string) string {
	section := doc.Find(`section[itemprop="` + itemprop + `"]`).First()
	if section.Length() == 0 {
		return ""
	}
	content := section.Find(`[itemprop="content"]`).First()
	if content.Length() > 0 {
		return collapseText(content)
	}
	return collapseText(section)
}

func parseClaims(doc *goquery.Document) []string {
	section := doc.Find(`section[itemprop="claims"]`).First()
	if section.Length() == 0 {
		return nil
	}

	var claims []string
	section.Find("claim").Each(func(_ int, c *goquery.Selection) {
		if text := collapseText(c); text != "" {
			claims = append(claims, text)
		}
	})
	if len(claims) == 0 {
		section.Find("p").Each(func(_ int, p *goquery.Selection) {
			if text := collapseText(p); text != "" {
				claims = append(claims, text)
			}
		})
	}
	return claims
}

// parseCitations collects forward citations from the "Cited By" section and
// backward citations from the "Citations" section.
func parseCitations(doc *goquery.Document) (forward, backward []string) {
	if section := findSectionByHeading(doc, "Cited By", ""); section != nil {
		forward = citationIDs(section)
	}
	if section := findSectionByHeading(doc, "Citations", "Cited By"); section != nil {
		backward = citationIDs(section)
	}
	return forward, backward
}

func citationIDs(section *goquery.Selection) []string {
	var ids []string
	section.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if id := strings.TrimSpace(tr.Find("a").First().Text()); id != "" {
			ids = append(ids, id)
		}
	})
	return ids
}

// findSectionByHeading returns the first section whose h2 contains want and,
// when exclude is non-empty, does not contain exclude.
func findSectionByHeading(doc *goquery.Document, want, exclude string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("section").EachWithBreak(func(_ int, sec *goquery.Selection) bool {
		heading := sec.Find("h2").First().Text()
		if !strings.Contains(heading, want) {
			return true
		}
		if exclude != "" && strings.Contains(heading, exclude) {
			return true
		}
		found = sec
		return false
	})
	return found
}

var innerWhitespace = regexp.MustCompile(`[ \t]+`)
var blankLines = regexp.MustCompile(`\n{2,}`)

// blockTags end a line when walking text nodes, so adjacent paragraphs do
// not run together the way a flat text extraction would glue them.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "br": true,
	"section": true, "tr": true, "h2": true, "h3": true,
}

func nodeText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodeText(c, b)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		b.WriteByte('\n')
	}
}

// collapseText extracts a selection's text with normalized whitespace.
func collapseText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		nodeText(n, &b)
	}
	text := innerWhitespace.ReplaceAllString(b.String(), " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
