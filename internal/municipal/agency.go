package municipal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/config"
	"golang.org/x/time/rate"
)

// Timeouts bound each kind of agency call.
type Timeouts struct {
	Fetch    time.Duration
	Submit   time.Duration
	Schedule time.Duration
	Upload   time.Duration
}

var DefaultTimeouts = Timeouts{
	Fetch:    10 * time.Second,
	Submit:   15 * time.Second,
	Schedule: 10 * time.Second,
	Upload:   20 * time.Second,
}

// PermitStatus is an agency's view of one permit. Raw is the response body,
// kept verbatim for the permit's tracking data.
type PermitStatus struct {
	Status       string
	ApprovalDate *time.Time
	ExpiryDate   *time.Time
	Raw          json.RawMessage
}

// Receipt acknowledges a submission, inspection request or document upload.
type Receipt struct {
	ExternalID string
	Status     string
	Raw        json.RawMessage
}

type AgencyOptions struct {
	Agencies      map[string]config.AgencyConfig
	RatePerSecond float64
	Timeouts      Timeouts
	HTTPClient    *http.Client
	Observe       Observer
}

// AgencyClient talks to the per-permit-type government APIs
// (health, fire, building, zoning), each behind a bearer key.
type AgencyClient struct {
	agencies map[string]config.AgencyConfig
	timeouts Timeouts
	req      map[string]*requester
}

func NewAgencyClient(opts AgencyOptions) *AgencyClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeouts := opts.Timeouts
	if timeouts == (Timeouts{}) {
		timeouts = DefaultTimeouts
	}

	c := &AgencyClient{
		agencies: make(map[string]config.AgencyConfig),
		timeouts: timeouts,
		req:      make(map[string]*requester),
	}
	for permitType, agency := range opts.Agencies {
		c.agencies[permitType] = agency
		c.req[permitType] = &requester{
			source:  "agency:" + permitType,
			client:  client,
			limiter: newLimiter(opts.RatePerSecond),
			observe: opts.Observe,
		}
	}
	return c
}

// Configured reports whether both URL and key are set for permitType.
func (c *AgencyClient) Configured(permitType string) bool {
	a, ok := c.agencies[permitType]
	return ok && a.BaseURL != "" && a.APIKey != ""
}

func (c *AgencyClient) agency(permitType string) (config.AgencyConfig, *requester, error) {
	if !c.Configured(permitType) {
		return config.AgencyConfig{}, nil, apperr.Dependency(
			fmt.Sprintf("API configuration not found for permit type: %s", permitType), nil)
	}
	return c.agencies[permitType], c.req[permitType], nil
}

func (c *AgencyClient) call(ctx context.Context, permitType string, timeout time.Duration, method, path string, body any) (json.RawMessage, error) {
	agency, r, err := c.agency(permitType)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+agency.APIKey)

	endpoint := strings.TrimRight(agency.BaseURL, "/") + path
	raw, err := r.do(ctx, timeout, method, endpoint, header, body)
	if err != nil {
		return nil, apperr.Dependency(fmt.Sprintf("%s agency request failed", permitType), err)
	}
	return raw, nil
}

func (c *AgencyClient) FetchPermitStatus(ctx context.Context, permitType, externalID string) (*PermitStatus, error) {
	raw, err := c.call(ctx, permitType, c.timeouts.Fetch, http.MethodGet, "/"+url.PathEscape(externalID), nil)
	if err != nil {
		return nil, err
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperr.Dependency(fmt.Sprintf("%s agency returned an unexpected payload", permitType), err)
	}

	return &PermitStatus{
		Status:       stringField(body, "status"),
		ApprovalDate: dateField(body, "approval_date"),
		ExpiryDate:   dateField(body, "expiry_date"),
		Raw:          raw,
	}, nil
}

func (c *AgencyClient) SubmitApplication(ctx context.Context, permitType string, application any) (*Receipt, error) {
	raw, err := c.call(ctx, permitType, c.timeouts.Submit, http.MethodPost, "", application)
	if err != nil {
		return nil, err
	}
	return receipt(raw, "id", "permit_id")
}

func (c *AgencyClient) ScheduleInspection(ctx context.Context, permitType, externalID string, request any) (*Receipt, error) {
	raw, err := c.call(ctx, permitType, c.timeouts.Schedule, http.MethodPost, "/"+url.PathEscape(externalID)+"/inspections", request)
	if err != nil {
		return nil, err
	}
	return receipt(raw, "id", "inspection_id")
}

func (c *AgencyClient) UploadDocument(ctx context.Context, permitType, externalID string, document any) (*Receipt, error) {
	raw, err := c.call(ctx, permitType, c.timeouts.Upload, http.MethodPost, "/"+url.PathEscape(externalID)+"/documents", document)
	if err != nil {
		return nil, err
	}
	return receipt(raw, "id", "document_id")
}

// LimiterState is the outbound rate limit of one source at a point in time.
type LimiterState struct {
	Source    string  `json:"source"`
	Unlimited bool    `json:"unlimited"`
	PerSecond float64 `json:"perSecond"`
	Burst     int     `json:"burst"`
	Tokens    float64 `json:"tokens"`
}

func limiterState(source string, l *rate.Limiter) LimiterState {
	if l.Limit() == rate.Inf {
		return LimiterState{Source: source, Unlimited: true}
	}
	return LimiterState{
		Source:    source,
		PerSecond: float64(l.Limit()),
		Burst:     l.Burst(),
		Tokens:    l.Tokens(),
	}
}

// Limits reports the limiter of every configured agency, ordered by source.
func (c *AgencyClient) Limits() []LimiterState {
	states := make([]LimiterState, 0, len(c.req))
	for _, r := range c.req {
		states = append(states, limiterState(r.source, r.limiter))
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Source < states[j].Source })
	return states
}

func receipt(raw json.RawMessage, idKeys ...string) (*Receipt, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperr.Dependency("agency returned an unexpected payload", err)
	}
	return &Receipt{
		ExternalID: stringField(body, idKeys...),
		Status:     stringField(body, "status"),
		Raw:        raw,
	}, nil
}

// stringField returns the first non-empty value among keys, formatting numbers as text.
func stringField(body map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := body[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func dateField(body map[string]any, key string) *time.Time {
	s, ok := body[key].(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
