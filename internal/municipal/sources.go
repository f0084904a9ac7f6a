package municipal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type sourceBase struct {
	spec    SourceSpec
	baseURL string
	token   string
	timeout time.Duration
	req     *requester
}

func (b *sourceBase) City() City {
	return City{
		Key:      b.spec.Key,
		Name:     b.spec.Name,
		State:    b.spec.State,
		Country:  b.spec.Country,
		Features: b.spec.Features,
	}
}

func (b *sourceBase) StatusField() string { return b.spec.StatusField }

func (b *sourceBase) MapStatus(raw string) string {
	if mapped, ok := b.spec.StatusMap[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return mapped
	}
	return raw
}

func (b *sourceBase) get(ctx context.Context, endpoint string, query url.Values, header http.Header) (json.RawMessage, error) {
	if b.baseURL == "" {
		return nil, fmt.Errorf("%s: base URL not configured", b.spec.Key)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	raw, err := b.req.do(ctx, b.timeout, http.MethodGet, endpoint, header, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.spec.Name, err)
	}
	return raw, nil
}

// socrataSource queries a Socrata open-data resource (SF, Chicago, NYC).
type socrataSource struct{ sourceBase }

func (s *socrataSource) query(field, value string, limit int) url.Values {
	q := url.Values{}
	q.Set(field, value)
	if s.token != "" {
		q.Set("$$app_token", s.token)
	}
	if s.spec.Order != "" {
		q.Set("$order", s.spec.Order)
	}
	q.Set("$limit", fmt.Sprint(limit))
	return q
}

func (s *socrataSource) PermitStatus(ctx context.Context, permitNumber string) ([]json.RawMessage, error) {
	raw, err := s.get(ctx, s.baseURL, s.query(s.spec.PermitField, permitNumber, 1), nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(raw)
}

func (s *socrataSource) SearchBusinessPermits(ctx context.Context, businessName, _ string) ([]json.RawMessage, error) {
	if s.spec.SearchField == "" {
		return nil, ErrSearchUnsupported
	}
	raw, err := s.get(ctx, s.baseURL, s.query(s.spec.SearchField, businessName, 10), nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(raw)
}

// arcgisSource queries an ArcGIS feature service (Houston).
type arcgisSource struct{ sourceBase }

func (s *arcgisSource) features(ctx context.Context, where string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("where", where)
	q.Set("outFields", "*")
	q.Set("f", "json")
	if s.token != "" {
		q.Set("token", s.token)
	}
	raw, err := s.get(ctx, s.baseURL, q, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Features []struct {
			Attributes json.RawMessage `json:"attributes"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%s: malformed feature set: %w", s.spec.Name, err)
	}

	rows := make([]json.RawMessage, 0, len(body.Features))
	for _, f := range body.Features {
		rows = append(rows, f.Attributes)
	}
	return rows, nil
}

func (s *arcgisSource) PermitStatus(ctx context.Context, permitNumber string) ([]json.RawMessage, error) {
	return s.features(ctx, fmt.Sprintf("%s='%s'", s.spec.PermitField, escapeSQL(permitNumber)))
}

func (s *arcgisSource) SearchBusinessPermits(ctx context.Context, _, _ string) ([]json.RawMessage, error) {
	return nil, ErrSearchUnsupported
}

// escapeSQL doubles single quotes inside an ArcGIS where-clause literal.
func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// bearerSource is a REST API behind a bearer token (Los Angeles County).
type bearerSource struct{ sourceBase }

func (s *bearerSource) header() http.Header {
	h := http.Header{}
	if s.token != "" {
		h.Set("Authorization", "Bearer "+s.token)
	}
	return h
}

func (s *bearerSource) PermitStatus(ctx context.Context, permitNumber string) ([]json.RawMessage, error) {
	endpoint := strings.TrimRight(s.baseURL, "/") + "/facilities/" + url.PathEscape(permitNumber)
	raw, err := s.get(ctx, endpoint, nil, s.header())
	if err != nil {
		return nil, err
	}
	return decodeRows(raw)
}

func (s *bearerSource) SearchBusinessPermits(ctx context.Context, businessName, zip string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("name", businessName)
	if zip != "" {
		q.Set("zip", zip)
	}
	raw, err := s.get(ctx, strings.TrimRight(s.baseURL, "/")+"/search", q, s.header())
	if err != nil {
		return nil, err
	}
	return decodeRows(raw)
}

// decodeRows accepts either a JSON array of records or a single object.
func decodeRows(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("malformed record list: %w", err)
		}
		return rows, nil
	}
	if trimmed == "null" || trimmed == "{}" {
		return []json.RawMessage{}, nil
	}
	return []json.RawMessage{raw}, nil
}
