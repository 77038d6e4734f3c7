package rate_api

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/langowen/ratepresence/internal/entities"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type HTTPClient struct {
	client *resty.Client
	url    string
	apiKey string
	field  []string
}

// NewHTTPClient builds a single-attempt client. field is a dot separated path
// to the rate inside the JSON body, e.g. "info.rate".
func NewHTTPClient(url, apiKey, field string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &HTTPClient{
		client: client,
		url:    url,
		apiKey: apiKey,
		field:  strings.Split(field, "."),
	}
}

func (c *HTTPClient) Fetch(ctx context.Context) (decimal.Decimal, error) {
	const op = "rate_api.Fetch"

	req := c.client.R().SetContext(ctx)
	if c.apiKey != "" {
		req.SetQueryParam("access_key", c.apiKey)
	}

	resp, err := req.Get(c.url)
	if err != nil {
		return decimal.Zero, errors.Wrap(entities.Mark(entities.ErrFetch, err), op)
	}

	if !resp.IsSuccess() {
		return decimal.Zero, errors.Wrapf(entities.ErrFetch, "%s: bad status %s", op, resp.Status())
	}

	rate, err := extractRate(resp.Body(), c.field)
	if err != nil {
		return decimal.Zero, errors.Wrap(entities.Mark(entities.ErrFetch, err), op)
	}

	return rate, nil
}

func extractRate(body []byte, path []string) (decimal.Decimal, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var node any
	if err := dec.Decode(&node); err != nil {
		return decimal.Zero, errors.Wrap(err, "json decode error")
	}

	for _, key := range path {
		obj, ok := node.(map[string]any)
		if !ok {
			return decimal.Zero, errors.Errorf("field %q not found", strings.Join(path, "."))
		}
		if node, ok = obj[key]; !ok {
			return decimal.Zero, errors.Errorf("field %q not found", strings.Join(path, "."))
		}
	}

	var raw string
	switch v := node.(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	default:
		return decimal.Zero, errors.Errorf("field %q is not numeric: %v", strings.Join(path, "."), v)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "field %q is not numeric", strings.Join(path, "."))
	}

	if rate.IsNegative() {
		return decimal.Zero, errors.Wrap(entities.ErrNegativeRate, rate.String())
	}

	return rate, nil
}
