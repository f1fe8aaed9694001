package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "us1234567a", "US1234567A"},
		{"surrounding whitespace", "  US1234567A  ", "US1234567A"},
		{"hyphens removed", "US-1234-567-A", "US1234567A"},
		{"internal whitespace removed", "US 1234 567 A", "US1234567A"},
		{"mixed", " us-12 34\t567a\n", "US1234567A"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.in))
		})
	}
}

func TestNormalizeID_Idempotent(t *testing.T) {
	inputs := []string{"us-123a", " EP 99 88 ", "JP2020-123456A", ""}
	for _, in := range inputs {
		once := NormalizeID(in)
		assert.Equal(t, once, NormalizeID(once), "re-normalizing %q", in)
	}
}

func TestExtractIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"english page", "https://patents.google.com/patent/US1234567A/en", "US1234567A"},
		{"trailing segment", "https://patents.google.com/patent/EP1111111B1/de", "EP1111111B1"},
		{"no trailing slash", "https://patents.google.com/patent/US1234567A", ""},
		{"no patent segment", "https://patents.google.com/?q=widgets", ""},
		{"empty", "", ""},
		{"garbage", "not a url at all", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractIDFromURL(tt.url))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("explicit id wins over url", func(t *testing.T) {
		got := Resolve("us-111", "https://patents.google.com/patent/US2222222A/en")
		assert.Equal(t, "US111", got)
	})

	t.Run("falls back to url", func(t *testing.T) {
		got := Resolve("", "https://patents.google.com/patent/US2222222A/en")
		assert.Equal(t, "US2222222A", got)
	})

	t.Run("blank explicit id falls through", func(t *testing.T) {
		got := Resolve("   ", "https://patents.google.com/patent/US2222222A/en")
		assert.Equal(t, "US2222222A", got)
	})

	t.Run("nothing resolvable", func(t *testing.T) {
		assert.Equal(t, "", Resolve("", "https://example.com/nope"))
	})
}

func TestPatentKey_FallbackChain(t *testing.T) {
	t.Run("original id first", func(t *testing.T) {
		p := &Patent{
			OriginalID: "us-11-22",
			URL:        "https://patents.google.com/patent/US9999999A/en",
			ID:         "US0000000",
		}
		assert.Equal(t, "US1122", p.Key())
	})

	t.Run("url second", func(t *testing.T) {
		p := &Patent{
			URL: "https://patents.google.com/patent/US9999999A/en",
			ID:  "US0000000",
		}
		assert.Equal(t, "US9999999A", p.Key())
	})

	t.Run("id last", func(t *testing.T) {
		p := &Patent{ID: "us 00"}
		assert.Equal(t, "US00", p.Key())
	})

	t.Run("nothing", func(t *testing.T) {
		assert.Equal(t, "", (&Patent{}).Key())
	})
}

func TestSearchRowKey(t *testing.T) {
	row := SearchRow{ID: "", ResultLink: "https://patents.google.com/patent/US777A/en"}
	assert.Equal(t, "US777A", row.Key())

	row = SearchRow{ID: "ep-1", ResultLink: "https://patents.google.com/patent/US777A/en"}
	assert.Equal(t, "EP1", row.Key())
}
