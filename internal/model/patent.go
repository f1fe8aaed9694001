// Package model defines the patent record accreted across pipeline stages
// and the canonical identity resolution used for deduplication and resume.
package model

// Patent is one record flowing through the pipeline. Each stage adds its own
// annotation fields and never touches fields owned by another stage.
type Patent struct {
	// Stage 1 (collect).
	OriginalID   string `json:"original_id,omitempty"` // raw id column from the search export
	ID           string `json:"id"`                    // normalized patent identifier
	URL          string `json:"url,omitempty"`
	CSVTitle     string `json:"csv_title,omitempty"`
	AbstractText string `json:"abstract_text,omitempty"`
	Error        string `json:"error,omitempty"` // set when the collect scrape gave up

	// Stage 2 (screen). Nil means the record had no abstract to judge.
	TeachingContent *bool `json:"teaching_content,omitempty"`

	// Stage 3 (describe).
	Title                      string   `json:"title,omitempty"`
	PublicationDate            string   `json:"publication_date,omitempty"`
	Inventors                  []string `json:"inventors,omitempty"`
	ApplicationNumber          string   `json:"application_number,omitempty"`
	Country                    string   `json:"country,omitempty"`
	Abstract                   string   `json:"abstract,omitempty"`
	Description                string   `json:"description,omitempty"`
	Claims                     string   `json:"claims,omitempty"`
	ClassificationNumbers      []string `json:"classification_numbers,omitempty"`
	ClassificationDescriptions []string `json:"classification_descriptions,omitempty"`
	ForwardCites               []string `json:"forward_cites,omitempty"`
	BackwardCites              []string `json:"backward_cites,omitempty"`
	AllCites                   []string `json:"all_cites,omitempty"`

	// Stage 4 (classify).
	TechnologyClass string `json:"technology_class,omitempty"`
	Reason          string `json:"reason,omitempty"`

	// Stage 5 (covid).
	IsCovid string `json:"is_covid,omitempty"`
}

// SearchRow is one row of a Google Patents search export (CSV or XLSX).
type SearchRow struct {
	ID         string
	ResultLink string
	Title      string
}

// Key resolves the canonical identity key for a search row: the explicit id
// column if present, otherwise the id embedded in the result link.
func (r SearchRow) Key() string {
	return Resolve(r.ID, r.ResultLink)
}

// Key resolves the canonical identity key for a persisted record using the
// broadest fallback chain: the original export id, then the id embedded in
// the record URL, then the record's own id field. Empty when none resolve.
func (p *Patent) Key() string {
	if k := NormalizeID(p.OriginalID); k != "" {
		return k
	}
	if k := NormalizeID(ExtractIDFromURL(p.URL)); k != "" {
		return k
	}
	return NormalizeID(p.ID)
}
