package llm

import (
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strings"
)

var (
	plainYear = regexp.MustCompile(`^\d{4}$`)
	yearRun   = regexp.MustCompile(`\d{4}`)
)

// NormalizeAndSanitize cleans a decoded model response in place:
//   - renames known synonyms to our field names (licence -> licence_no)
//   - coerces numeric values to strings for string-typed fields
//   - reduces season-span validity years to a plain 4-digit year
//   - drops null/empty values
//   - lowercases type and confidence
//   - removes unknown keys
//
// It returns the cleaned map and the list of keys it dropped or renamed.
func NormalizeAndSanitize(m map[string]any, logger *slog.Logger) (map[string]any, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		return map[string]any{}, nil
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms the model likes to invent
	renamed("licence", "licence_no")
	renamed("numero_licence", "licence_no")
	renamed("annee", "annee_validite")
	renamed("document_type", "type")

	// 2) coerce numbers to strings, drop nulls and empties
	stringFields := []string{"nom", "prenom", "licence_no", "annee_validite", "classement", "club", "statut", "type", "confidence"}
	for _, k := range stringFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			if t == float64(int64(t)) {
				m[k] = fmt.Sprintf("%d", int64(t))
			} else {
				m[k] = fmt.Sprintf("%v", t)
			}
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		default:
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		}
	}

	// 3) reduce season spans ("2024/2025") to a plain year; drop the field
	// when no year can be salvaged. The record itself is kept either way.
	if v, ok := m["annee_validite"].(string); ok && !plainYear.MatchString(v) {
		if y := yearRun.FindString(v); y != "" {
			m["annee_validite"] = y
			dropped = append(dropped, "annee_validite(reduced)")
		} else {
			delete(m, "annee_validite")
			dropped = append(dropped, "annee_validite(pattern)")
		}
	}

	// 4) normalize enum-ish fields
	if v, ok := m["type"].(string); ok {
		m["type"] = strings.ToLower(v)
	}
	if v, ok := m["confidence"].(string); ok {
		m["confidence"] = strings.ToLower(v)
	}

	// 5) remove unknown keys
	allowed := map[string]struct{}{
		"type": {}, "nom": {}, "prenom": {}, "licence_no": {},
		"annee_validite": {}, "classement": {}, "club": {}, "statut": {},
		"confidence": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	if len(dropped) > 0 {
		logger.Warn("llm.sanitize.cleaned", "dropped", dropped)
	}
	return m, dropped
}
