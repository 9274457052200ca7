package salesforce

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// shapePayload prepares one record for transmission. Field names pass
// through 1:1; the only transformation is the discount rescale from
// fraction to percentage.
func (c *Client) shapePayload(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	if c.cfg.DiscountField == "" {
		return out
	}
	raw, ok := out[c.cfg.DiscountField]
	if !ok {
		return out
	}
	if scaled, err := rescaleDiscount(raw); err == nil {
		out[c.cfg.DiscountField] = scaled
	}
	return out
}

// rescaleDiscount multiplies a fractional discount by 100 using exact
// decimal arithmetic, so 0.15 transmits as 15 rather than a float artifact.
// Empty and nil values pass through untouched via the error return.
func rescaleDiscount(v any) (json.Number, error) {
	var text string
	switch d := v.(type) {
	case string:
		text = d
	case json.Number:
		text = d.String()
	case float64:
		text = fmt.Sprintf("%g", d)
	case int:
		text = fmt.Sprintf("%d", d)
	default:
		return "", fmt.Errorf("discount value %T is not numeric", v)
	}
	if text == "" {
		return "", fmt.Errorf("discount value is empty")
	}

	dec, _, err := apd.NewFromString(text)
	if err != nil {
		return "", fmt.Errorf("parse discount %q: %w", text, err)
	}

	var scaled apd.Decimal
	ctx := apd.BaseContext.WithPrecision(30)
	if _, err := ctx.Mul(&scaled, dec, apd.New(100, 0)); err != nil {
		return "", fmt.Errorf("rescale discount %q: %w", text, err)
	}
	scaled.Reduce(&scaled)
	return json.Number(scaled.Text('f')), nil
}
