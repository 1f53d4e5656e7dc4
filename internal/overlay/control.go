package overlay

import (
	"strings"
	"unicode"

	"github.com/gisquick/countyview/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var defaultDuplicateMarkers = domain.NameList{"address points"}

// NormalizeName folds a display name for duplicate detection: diacritics and
// every symbol other than letters, digits and spaces are removed, the result
// is lowercased and runs of spaces collapse to one.
func NormalizeName(name string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// RegisterWithControl adds every materialized layer to the layer control,
// in registration order, skipping entries whose name duplicates one already
// added. It returns the number of entries added.
func (m *Manager) RegisterWithControl(control LayerControl) int {
	markers := defaultDuplicateMarkers.Union(m.viewer.Get().DuplicateMarkers)

	type entry struct {
		handle Overlay
		label  string
	}
	m.mu.Lock()
	var (
		entries []entry
		seen    []string
	)
	for _, id := range m.order {
		l := m.layers[id]
		if l.Rendered == nil {
			continue
		}
		normalized := NormalizeName(l.Config.DisplayName)
		if isDuplicate(normalized, seen, markers) {
			m.log.Debugw("skipping duplicate layer control entry", "layer", id, "name", l.Config.DisplayName)
			continue
		}
		seen = append(seen, normalized)
		entries = append(entries, entry{handle: l.Rendered, label: l.Config.DisplayName})
	}
	m.mu.Unlock()

	for _, e := range entries {
		control.AddOverlay(e.handle, e.label)
	}
	return len(entries)
}

func isDuplicate(name string, seen []string, markers domain.NameList) bool {
	for _, s := range seen {
		if s == name {
			return true
		}
		for _, marker := range markers {
			marker = NormalizeName(marker)
			if strings.Contains(name, marker) && strings.Contains(s, marker) {
				return true
			}
		}
	}
	return false
}
