// Package formparse extracts ground-truth form fields from page markup.
// The extracted fields are what model claims get reconciled against.
package formparse

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kamilpajak/fieldscope/pkg/fieldmap"
)

// fieldElements selects the fillable elements inside a form.
const fieldElements = "input, select, textarea"

// maxContextLen bounds the surrounding-context excerpt stored per field.
const maxContextLen = 300

// nonFillableTypes are input types that take no user data.
var nonFillableTypes = map[string]bool{
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
}

// honeypotNameHints are substrings of name/id attributes commonly used for
// trap fields.
var honeypotNameHints = []string{"honeypot", "honey_pot", "hp_", "_hp", "trap", "winnie", "url_confirm"}

// ExtractFields parses the markup and returns the ground-truth fields of
// the form matched by formSelector. An empty selector scans the whole
// document. Returns an error when the selector matches nothing.
func ExtractFields(html, formSelector string) ([]fieldmap.GroundTruthField, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	scope := doc.Selection
	if formSelector != "" {
		scope = doc.Find(formSelector)
		if scope.Length() == 0 {
			return nil, fmt.Errorf("selector %q matched no element", formSelector)
		}
	}

	var fields []fieldmap.GroundTruthField
	seen := make(map[string]bool)
	scope.Find(fieldElements).Each(func(i int, sel *goquery.Selection) {
		field, ok := extractField(doc, sel, i)
		if !ok || seen[field.Selector] {
			return
		}
		seen[field.Selector] = true
		fields = append(fields, field)
	})
	return fields, nil
}

func extractField(doc *goquery.Document, sel *goquery.Selection, index int) (fieldmap.GroundTruthField, bool) {
	tag := goquery.NodeName(sel)
	inputType := strings.ToLower(sel.AttrOr("type", ""))
	if tag == "input" && nonFillableTypes[inputType] {
		return fieldmap.GroundTruthField{}, false
	}

	attrs := make(map[string]string)
	for _, a := range sel.Nodes[0].Attr {
		attrs[a.Key] = a.Val
	}

	rawHTML, err := goquery.OuterHtml(sel)
	if err != nil {
		rawHTML = ""
	}

	return fieldmap.GroundTruthField{
		Selector:           fieldSelector(sel, tag, index),
		Purpose:            inferPurpose(sel, tag, inputType),
		Type:               fieldType(tag, inputType),
		WasHoneypot:        isHoneypot(sel, inputType),
		RawHTML:            rawHTML,
		Attributes:         attrs,
		SurroundingContext: surroundingContext(doc, sel),
	}, true
}

// fieldSelector builds a stable CSS selector for the element, preferring
// id, then name, then a positional fallback.
func fieldSelector(sel *goquery.Selection, tag string, index int) string {
	if id, ok := sel.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if name, ok := sel.Attr("name"); ok && name != "" {
		return fmt.Sprintf(`%s[name="%s"]`, tag, name)
	}
	return fmt.Sprintf("%s:nth-of-type(%d)", tag, index+1)
}

// fieldType normalizes the element into a field type token.
func fieldType(tag, inputType string) string {
	switch tag {
	case "select":
		return "select"
	case "textarea":
		return "textarea"
	}
	if inputType == "" {
		return "text"
	}
	return inputType
}

// purposeByToken maps attribute tokens to field purposes, checked in
// order against autocomplete, name and id.
var purposeByToken = []struct {
	token   string
	purpose string
}{
	{"email", "email"},
	{"phone", "phone"},
	{"tel", "phone"},
	{"first-name", "first_name"},
	{"firstname", "first_name"},
	{"first_name", "first_name"},
	{"last-name", "last_name"},
	{"lastname", "last_name"},
	{"last_name", "last_name"},
	{"full-name", "name"},
	{"fullname", "name"},
	{"username", "username"},
	{"password", "password"},
	{"company", "company"},
	{"organization", "company"},
	{"address", "address"},
	{"street", "address"},
	{"city", "city"},
	{"zip", "postal_code"},
	{"postal", "postal_code"},
	{"country", "country"},
	{"state", "state"},
	{"linkedin", "linkedin_url"},
	{"github", "github_url"},
	{"website", "website"},
	{"url", "website"},
	{"resume", "resume_upload"},
	{"cv", "resume_upload"},
	{"cover", "cover_letter"},
	{"message", "message"},
	{"comment", "message"},
	{"subject", "subject"},
	{"name", "name"},
}

// inferPurpose guesses the field's purpose from its type and attributes.
func inferPurpose(sel *goquery.Selection, tag, inputType string) string {
	switch inputType {
	case "email":
		return "email"
	case "tel":
		return "phone"
	case "password":
		return "password"
	case "file":
		return "resume_upload"
	}

	haystack := strings.ToLower(strings.Join([]string{
		sel.AttrOr("autocomplete", ""),
		sel.AttrOr("name", ""),
		sel.AttrOr("id", ""),
		sel.AttrOr("placeholder", ""),
	}, " "))
	for _, m := range purposeByToken {
		if strings.Contains(haystack, m.token) {
			return m.purpose
		}
	}

	if tag == "textarea" {
		return "message"
	}
	return fieldmap.PurposeUnknown
}

// isHoneypot applies the trap-field heuristics: hidden styling, negative
// tab index, or a name that matches a known honeypot pattern.
func isHoneypot(sel *goquery.Selection, inputType string) bool {
	if inputType == "hidden" {
		return false // legitimate hidden state, not a trap
	}
	if _, ok := sel.Attr("hidden"); ok {
		return true
	}
	style := strings.ToLower(sel.AttrOr("style", ""))
	if strings.Contains(style, "display:none") || strings.Contains(style, "display: none") ||
		strings.Contains(style, "visibility:hidden") || strings.Contains(style, "visibility: hidden") {
		return true
	}
	if sel.AttrOr("tabindex", "") == "-1" && sel.AttrOr("aria-hidden", "") == "true" {
		return true
	}
	haystack := strings.ToLower(sel.AttrOr("name", "") + " " + sel.AttrOr("id", "") + " " + sel.AttrOr("class", ""))
	for _, hint := range honeypotNameHints {
		if strings.Contains(haystack, hint) {
			return true
		}
	}
	return false
}

// surroundingContext returns the label text associated with the element,
// falling back to the parent's text.
func surroundingContext(doc *goquery.Document, sel *goquery.Selection) string {
	if id, ok := sel.Attr("id"); ok && id != "" {
		label := doc.Find(fmt.Sprintf(`label[for="%s"]`, id))
		if label.Length() > 0 {
			return truncate(cleanText(label.Text()), maxContextLen)
		}
	}
	if parentLabel := sel.ParentsFiltered("label").First(); parentLabel.Length() > 0 {
		return truncate(cleanText(parentLabel.Text()), maxContextLen)
	}
	if parent := sel.Parent(); parent.Length() > 0 {
		return truncate(cleanText(parent.Text()), maxContextLen)
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
