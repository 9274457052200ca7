package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ActiveLineItems returns the ids of every currently-active line item under
// parentID.
func (c *Client) ActiveLineItems(ctx context.Context, parentID string) ([]string, error) {
	soql := fmt.Sprintf("SELECT Id FROM %s WHERE %s = '%s' AND %s = true",
		c.cfg.ObjectType, c.cfg.ParentField, escapeSOQL(parentID), c.cfg.ActiveField)

	result, err := c.Query(ctx, soql)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(result.Records))
	for _, rec := range result.Records {
		if id, ok := rec["Id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// MaxRevision returns the highest revision number recorded under parentID,
// or 0 when no line items exist.
func (c *Client) MaxRevision(ctx context.Context, parentID string) (int, error) {
	soql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = '%s' ORDER BY %s DESC LIMIT 1",
		c.cfg.RevisionField, c.cfg.ObjectType, c.cfg.ParentField,
		escapeSOQL(parentID), c.cfg.RevisionField)

	result, err := c.Query(ctx, soql)
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	return asInt(result.Records[0][c.cfg.RevisionField]), nil
}

// DeactivateAll clears the active flag on every id in one batched update.
// An empty id list is a no-op reported as an empty batch.
func (c *Client) DeactivateAll(ctx context.Context, ids []string) (BatchResult, error) {
	if len(ids) == 0 {
		return BatchResult{}, nil
	}

	updates := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, map[string]any{
			"Id":              id,
			c.cfg.ActiveField: false,
		})
	}
	return c.UpdateRecords(ctx, c.cfg.ObjectType, updates)
}

// InsertRevision creates records as one batched insert, applying the
// outbound payload shaping (discount rescale) first.
func (c *Client) InsertRevision(ctx context.Context, records []map[string]any) (BatchResult, error) {
	shaped := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		shaped = append(shaped, c.shapePayload(rec))
	}
	return c.CreateRecords(ctx, c.cfg.ObjectType, shaped)
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	case int:
		return n
	}
	return 0
}

// escapeSOQL escapes string-literal metacharacters in a SOQL value.
func escapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
