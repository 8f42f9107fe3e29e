package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docledger/internal/extract"
	"github.com/joseph-ayodele/docledger/internal/llm"
)

// ExtractSegment implements extract.SegmentExtractor using text-only
// chat/completions with a json_object response format. Every response is
// validated against the record schema; when validation fails and StrictOnly
// is off, a normalize pass repairs common shape drift and revalidates.
func (c *Client) ExtractSegment(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	key := cacheKey(req.Segment.Text)
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			var rec extract.PartialRecord
			if err := json.Unmarshal(raw, &rec); err == nil {
				c.logger.Info("llm.extract.cache_hit",
					"req_id", rid, "segment", req.Segment.Index)
				return rec, raw, nil
			}
			c.cache.Remove(key)
		}
	}

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"segment", req.Segment.Index,
		"pages", fmt.Sprintf("%d-%d", req.Segment.PageRange.Start, req.Segment.PageRange.End),
		"text_len", len(req.Segment.Text),
	)

	schema := llm.BuildRecordJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	var raw []byte
	err := c.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var hErr error
		raw, _, hErr = llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
		return hErr
	})
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "segment", req.Segment.Index, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.PartialRecord{}, nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return extract.PartialRecord{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return extract.PartialRecord{}, raw, fmt.Errorf("no choices in openai response")
	}
	rawContent := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	if err := llm.ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		if c.cfg.StrictOnly {
			return extract.PartialRecord{}, rawContent, fmt.Errorf("schema validation failed: %w", err)
		}
		cleaned, fixes, sErr := llm.NormalizeRecordJSON(rawContent, req.Segment.PageRange.Start, c.logger)
		if sErr != nil {
			return extract.PartialRecord{}, rawContent, fmt.Errorf("normalize failed: %w", sErr)
		}
		if vErr := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.logger.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "segment", req.Segment.Index, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return extract.PartialRecord{}, rawContent, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.logger.Warn("llm.extract.normalize_applied",
			"req_id", rid, "segment", req.Segment.Index, "fixes", fixes,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		rawContent = cleaned
	}

	var rec extract.PartialRecord
	if err := json.Unmarshal(rawContent, &rec); err != nil {
		return extract.PartialRecord{}, rawContent, fmt.Errorf("unmarshal record: %w", err)
	}

	if c.cache != nil {
		c.cache.Add(key, rawContent)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"segment", req.Segment.Index,
		"members", len(rec.Members),
		"ledgers", len(rec.Financials.ByMember),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, rawContent, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
