package llm

// BuildRecordJSONSchema returns the JSON-Schema (draft 2020-12 subset) for a
// per-segment partial record, as a generic map. We pass this to the model as
// a structured-output constraint and also use it locally to validate each
// response before it reaches the merge fold.
func BuildRecordJSONSchema() map[string]any {
	member := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"id":   map[string]any{"type": "string", "minLength": 1},
			"name": map[string]any{"type": "string"},
			"contact": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"email": map[string]any{"type": "string"},
					"phone": map[string]any{"type": "string"},
				},
			},
			"sourceLocation": locationProp(),
		},
		"required": []string{"id", "name"},
	}

	transaction := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"amount":         map[string]any{"type": "number"},
			"type":           map[string]any{"type": "string"},
			"sourceLocation": locationProp(),
		},
		"required": []string{"amount"},
	}

	ledger := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"memberId":     map[string]any{"type": "string", "minLength": 1},
			"totalSales":   map[string]any{"type": "number"},
			"transactions": map[string]any{"type": "array", "items": transaction},
			"summary": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"totalRevenue":       map[string]any{"type": "number"},
					"averageTransaction": map[string]any{"type": "number"},
					"sourceLocation":     locationProp(),
				},
			},
		},
		"required": []string{"memberId"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"members": map[string]any{"type": "array", "items": member},
			"financials": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"byMember": map[string]any{"type": "array", "items": ledger},
					"overall": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"properties": map[string]any{
							"totalSales":     map[string]any{"type": "number"},
							"totalRevenue":   map[string]any{"type": "number"},
							"sourceLocation": locationProp(),
						},
					},
				},
			},
			"metadata": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"documentDate":        map[string]any{"type": "string"},
					"reportPeriod":        map[string]any{"type": "string"},
					"extractionTimestamp": map[string]any{"type": "string"},
				},
			},
		},
	}
}

func locationProp() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page":  map[string]any{"type": "integer", "minimum": 1},
			"index": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"page"},
	}
}
