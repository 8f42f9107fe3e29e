package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// NormalizeRecordJSON repairs the common ways a model response drifts from
// the partial-record schema so the segment can still validate:
//   - Removes unknown top-level keys (strict additionalProperties friendliness)
//   - Coerces money-ish values returned as strings into numbers
//   - Fills absent or invalid sourceLocation objects with the segment's first page
//   - Drops metadata.extractionTimestamp (the merge fold owns that field)
//
// It only repairs shape, never invents values. Returns the normalized JSON
// and the list of fixes applied.
func NormalizeRecordJSON(raw []byte, defaultPage int, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var fixes []string
	note := func(f string) { fixes = append(fixes, f) }

	// Unknown top-level keys (models occasionally echo "segment" or "notes").
	allowed := map[string]struct{}{"members": {}, "financials": {}, "metadata": {}}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			note(k + "(unknown)")
		}
	}

	if members, ok := m["members"].([]any); ok {
		for _, mv := range members {
			member, ok := mv.(map[string]any)
			if !ok {
				continue
			}
			fixLocation(member, defaultPage, "members", note)
			if c, ok := member["contact"]; ok && c == nil {
				delete(member, "contact")
				note("members.contact(null)")
			}
		}
	} else if _, present := m["members"]; present {
		delete(m, "members")
		note("members(type)")
	}

	if fin, ok := m["financials"].(map[string]any); ok {
		if ledgers, ok := fin["byMember"].([]any); ok {
			for _, lv := range ledgers {
				ledger, ok := lv.(map[string]any)
				if !ok {
					continue
				}
				coerceNumber(ledger, "totalSales", note)
				if txs, ok := ledger["transactions"].([]any); ok {
					for _, tv := range txs {
						if tx, ok := tv.(map[string]any); ok {
							coerceNumber(tx, "amount", note)
							fixLocation(tx, defaultPage, "transactions", note)
						}
					}
				}
				if sum, ok := ledger["summary"].(map[string]any); ok {
					coerceNumber(sum, "totalRevenue", note)
					coerceNumber(sum, "averageTransaction", note)
					fixLocation(sum, defaultPage, "summary", note)
				}
			}
		}
		if overall, ok := fin["overall"].(map[string]any); ok {
			coerceNumber(overall, "totalSales", note)
			coerceNumber(overall, "totalRevenue", note)
			fixLocation(overall, defaultPage, "overall", note)
		}
	}

	if meta, ok := m["metadata"].(map[string]any); ok {
		if _, present := meta["extractionTimestamp"]; present {
			delete(meta, "extractionTimestamp")
			note("metadata.extractionTimestamp(owned)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fixes, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(fixes) > 0 {
		logger.Warn("llm.extract.normalize_record", "fixes", fixes)
	}
	return out, fixes, nil
}

// coerceNumber turns string/null numerics into schema-valid numbers, or
// drops the key when it cannot be parsed.
func coerceNumber(obj map[string]any, key string, note func(string)) {
	v, ok := obj[key]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		// already fine
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		s = strings.TrimPrefix(s, "$")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			obj[key] = f
			note(key + "(string)")
		} else {
			delete(obj, key)
			note(key + "(unparseable)")
		}
	case nil:
		delete(obj, key)
		note(key + "(null)")
	default:
		delete(obj, key)
		note(key + "(type)")
	}
}

// fixLocation guarantees a usable sourceLocation: absent, null, or
// page-less locations are anchored at the segment's first page.
func fixLocation(obj map[string]any, defaultPage int, field string, note func(string)) {
	loc, ok := obj["sourceLocation"].(map[string]any)
	if !ok {
		obj["sourceLocation"] = map[string]any{"page": defaultPage, "index": 0}
		note(field + ".sourceLocation(missing)")
		return
	}
	page, ok := loc["page"].(float64)
	if !ok || page < 1 {
		loc["page"] = defaultPage
		note(field + ".sourceLocation.page(invalid)")
	}
	if idx, ok := loc["index"].(float64); !ok || idx < 0 {
		loc["index"] = 0
	}
	// Strict schema: drop anything beyond page/index.
	for k := range loc {
		if k != "page" && k != "index" {
			delete(loc, k)
			note(field + ".sourceLocation." + k + "(unknown)")
		}
	}
}
