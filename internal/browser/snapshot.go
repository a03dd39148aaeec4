package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxBodyText = 2000

// Snapshot summarises a page for failure diagnostics
type Snapshot struct {
	URL      string
	Title    string
	Buttons  []string // text or value of every button-like control
	IDs      []string // element ids, in document order
	Errors   []string // text of #error and .error elements
	BodyText string   // whitespace-collapsed, truncated
}

// ParseSnapshot extracts diagnostics from serialized page HTML
func ParseSnapshot(pageURL, html string) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse page html: %w", err)
	}

	snap := Snapshot{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	doc.Find("button, [role='button'], input[type='submit'], input[type='button']").Each(func(i int, s *goquery.Selection) {
		label := collapse(s.Text())
		if label == "" {
			label, _ = s.Attr("value")
		}
		if label == "" {
			label, _ = s.Attr("id")
		}
		if label != "" {
			snap.Buttons = append(snap.Buttons, label)
		}
	})

	doc.Find("[id]").Each(func(i int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && id != "" {
			snap.IDs = append(snap.IDs, id)
		}
	})

	doc.Find("#error, .error").Each(func(i int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			snap.Errors = append(snap.Errors, text)
		}
	})

	body := doc.Find("body").Clone()
	body.Find("script, style").Remove()
	snap.BodyText = collapse(body.Text())
	if len(snap.BodyText) > maxBodyText {
		snap.BodyText = snap.BodyText[:maxBodyText] + "..."
	}

	return snap, nil
}

// String renders the snapshot as a plain-text report
func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", s.URL)
	fmt.Fprintf(&b, "Title: %s\n", s.Title)
	fmt.Fprintf(&b, "Buttons: %s\n", strings.Join(s.Buttons, " | "))
	fmt.Fprintf(&b, "IDs: %s\n", strings.Join(s.IDs, ", "))
	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, "Errors: %s\n", strings.Join(s.Errors, " | "))
	}
	fmt.Fprintf(&b, "Body: %s\n", s.BodyText)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
