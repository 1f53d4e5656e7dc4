package domain

import (
	"fmt"
	"html"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MissingValue is rendered in place of absent or empty attributes.
const MissingValue = "N/A"

// PopupTemplate is a title and body pattern with {FIELD} placeholders.
type PopupTemplate struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	// ListAttributes appends every non-empty attribute to the body.
	ListAttributes bool `json:"list_attributes,omitempty" yaml:"list_attributes,omitempty"`
}

func (t PopupTemplate) IsZero() bool {
	return t.Title == "" && t.Content == "" && !t.ListAttributes
}

type Popup struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (t PopupTemplate) Render(attrs map[string]interface{}) Popup {
	content := Substitute(t.Content, attrs)
	if t.ListAttributes {
		var b strings.Builder
		b.WriteString(content)
		for _, a := range DisplayAttributes(attrs) {
			fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>", html.EscapeString(a.Key), html.EscapeString(a.Value))
		}
		content = b.String()
	}
	return Popup{Title: Substitute(t.Title, attrs), Content: content}
}

// Substitute replaces every {FIELD} placeholder in pattern with the escaped
// attribute value. Absent, null and empty attributes render as MissingValue.
func Substitute(pattern string, attrs map[string]interface{}) string {
	return fasttemplate.ExecuteFuncString(pattern, "{", "}", func(w io.Writer, tag string) (int, error) {
		if !isFieldName(tag) {
			return io.WriteString(w, "{"+tag+"}")
		}
		value, ok := FormatValue(attrs[tag])
		if !ok {
			return io.WriteString(w, MissingValue)
		}
		return io.WriteString(w, html.EscapeString(value))
	})
}

// isFieldName reports whether s is a plain identifier usable as a placeholder.
func isFieldName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// FormatValue renders an attribute value. The boolean is false for nil and
// empty string values.
func FormatValue(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return fmt.Sprint(v), true
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DisplayKey turns an attribute name into a label, "owner_name" -> "Owner Name".
func DisplayKey(key string) string {
	return cases.Title(language.Und, cases.NoLower).String(strings.ReplaceAll(key, "_", " "))
}

// DisplayAttributes lists the non-empty attributes sorted by name, with
// display-ready keys.
func DisplayAttributes(attrs map[string]interface{}) []Attribute {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	res := make([]Attribute, 0, len(keys))
	for _, k := range keys {
		value, ok := FormatValue(attrs[k])
		if !ok {
			continue
		}
		res = append(res, Attribute{Key: DisplayKey(k), Value: value})
	}
	return res
}
