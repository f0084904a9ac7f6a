package municipal

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/offolaunch/launchtrack/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var sourcesYAML []byte

// ErrUnsupportedJurisdiction is matched by every *UnsupportedJurisdictionError.
var ErrUnsupportedJurisdiction = errors.New("jurisdiction not supported")

type UnsupportedJurisdictionError struct {
	Country string
	State   string
	City    string
}

func (e *UnsupportedJurisdictionError) Error() string {
	return fmt.Sprintf("city not supported yet: %q (%s, %s)", e.City, e.State, e.Country)
}

func (e *UnsupportedJurisdictionError) Is(target error) bool {
	return target == ErrUnsupportedJurisdiction
}

// SourceSpec is one entry of sources.yaml.
type SourceSpec struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Country     string   `yaml:"country"`
	State       string   `yaml:"state"`
	City        string   `yaml:"city"`
	Aliases     []string `yaml:"aliases"`
	Features    []string `yaml:"features"`
	Kind        string   `yaml:"kind"`
	BaseURL     string   `yaml:"base_url"`
	BaseURLEnv  string   `yaml:"base_url_env"`
	TokenEnv    string   `yaml:"token_env"`
	PermitField string   `yaml:"permit_field"`
	SearchField string   `yaml:"search_field"`
	StatusField string   `yaml:"status_field"`
	// StatusMap translates source values (e.g. NYC grades) into agency vocabulary.
	StatusMap map[string]string `yaml:"status_map"`
	Order     string            `yaml:"order"`
}

type sourceFile struct {
	Sources []SourceSpec `yaml:"sources"`
}

// City describes a supported jurisdiction.
type City struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	State    string   `json:"state"`
	Country  string   `json:"country"`
	Features []string `json:"features"`
}

// Lookup is the uniform answer of every source. Supported is false when
// the location matched no source; Records is then empty and Message says why.
type Lookup struct {
	Supported bool              `json:"supported"`
	City      string            `json:"city,omitempty"`
	State     string            `json:"state,omitempty"`
	Found     bool              `json:"found"`
	Status    string            `json:"status,omitempty"`
	Records   []json.RawMessage `json:"records"`
	Message   string            `json:"message,omitempty"`
}

// Source is one municipal data provider.
type Source interface {
	City() City
	StatusField() string
	// MapStatus translates a raw status value through the source's status_map.
	MapStatus(raw string) string
	PermitStatus(ctx context.Context, permitNumber string) ([]json.RawMessage, error)
	// SearchBusinessPermits returns ErrSearchUnsupported when the source has no name index.
	SearchBusinessPermits(ctx context.Context, businessName, zip string) ([]json.RawMessage, error)
}

var ErrSearchUnsupported = errors.New("business search not supported for this city")

type DirectoryOptions struct {
	// Settings holds the values named by token_env and base_url_env.
	Settings map[string]string
	// BaseURLs overrides the base URL of a source by key.
	BaseURLs      map[string]string
	RatePerSecond float64
	Timeout       time.Duration
	HTTPClient    *http.Client
	Observe       Observer
}

// Directory resolves locations to municipal sources with exact lookups on a
// normalized (country, state, city) key and on per-city aliases.
type Directory struct {
	sources []Source
	byPlace map[string]Source
	byAlias map[string]Source
	byCity  map[string][]Source
}

func NewDirectory(opts DirectoryOptions) (*Directory, error) {
	var file sourceFile
	if err := yaml.Unmarshal(sourcesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse sources.yaml: %w", err)
	}
	return newDirectory(file.Sources, opts)
}

func newDirectory(specs []SourceSpec, opts DirectoryOptions) (*Directory, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeouts.Fetch
	}

	d := &Directory{
		byPlace: make(map[string]Source),
		byAlias: make(map[string]Source),
		byCity:  make(map[string][]Source),
	}

	for _, spec := range specs {
		baseURL := spec.BaseURL
		if spec.BaseURLEnv != "" {
			baseURL = opts.Settings[spec.BaseURLEnv]
		}
		if override, ok := opts.BaseURLs[spec.Key]; ok {
			baseURL = override
		}

		base := sourceBase{
			spec:    spec,
			baseURL: baseURL,
			token:   opts.Settings[spec.TokenEnv],
			timeout: timeout,
			req: &requester{
				source:  "city:" + spec.Key,
				client:  client,
				limiter: newLimiter(opts.RatePerSecond),
				observe: opts.Observe,
			},
		}

		var src Source
		switch spec.Kind {
		case "socrata":
			src = &socrataSource{base}
		case "arcgis":
			src = &arcgisSource{base}
		case "bearer":
			src = &bearerSource{base}
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", spec.Key, spec.Kind)
		}

		place := placeKey(spec.Country, spec.State, spec.City)
		if _, dup := d.byPlace[place]; dup {
			return nil, fmt.Errorf("source %s: duplicate jurisdiction %s", spec.Key, place)
		}
		d.byPlace[place] = src
		city := normalize(spec.City)
		d.byCity[city] = append(d.byCity[city], src)
		d.byAlias[normalize(spec.Key)] = src
		for _, alias := range spec.Aliases {
			d.byAlias[normalize(alias)] = src
		}
		d.sources = append(d.sources, src)
	}

	return d, nil
}

// normalize lower-cases, drops periods, treats hyphens and underscores as
// spaces and collapses whitespace: "  New-York  " and "new york" match.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", "", "-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var countryAliases = map[string]string{
	"":                         "us",
	"usa":                      "us",
	"united states":            "us",
	"united states of america": "us",
}

var usStates = map[string]string{
	"alabama": "al", "alaska": "ak", "arizona": "az", "arkansas": "ar", "california": "ca",
	"colorado": "co", "connecticut": "ct", "delaware": "de", "district of columbia": "dc",
	"florida": "fl", "georgia": "ga", "hawaii": "hi", "idaho": "id", "illinois": "il",
	"indiana": "in", "iowa": "ia", "kansas": "ks", "kentucky": "ky", "louisiana": "la",
	"maine": "me", "maryland": "md", "massachusetts": "ma", "michigan": "mi", "minnesota": "mn",
	"mississippi": "ms", "missouri": "mo", "montana": "mt", "nebraska": "ne", "nevada": "nv",
	"new hampshire": "nh", "new jersey": "nj", "new mexico": "nm", "new york": "ny",
	"north carolina": "nc", "north dakota": "nd", "ohio": "oh", "oklahoma": "ok", "oregon": "or",
	"pennsylvania": "pa", "rhode island": "ri", "south carolina": "sc", "south dakota": "sd",
	"tennessee": "tn", "texas": "tx", "utah": "ut", "vermont": "vt", "virginia": "va",
	"washington": "wa", "west virginia": "wv", "wisconsin": "wi", "wyoming": "wy",
}

// normalizeState maps full US state names onto their postal codes.
func normalizeState(state string) string {
	s := normalize(state)
	if code, ok := usStates[s]; ok {
		return code
	}
	return s
}

func placeKey(country, state, city string) string {
	c := normalize(country)
	if alias, ok := countryAliases[c]; ok {
		c = alias
	}
	return c + "|" + normalizeState(state) + "|" + normalize(city)
}

// Resolve finds the source for a location. The state is checked only when given.
func (d *Directory) Resolve(loc models.Location) (Source, error) {
	city := normalize(loc.City)
	unsupported := &UnsupportedJurisdictionError{Country: loc.Country, State: loc.State, City: loc.City}
	if city == "" {
		return nil, unsupported
	}

	if loc.State != "" {
		if src, ok := d.byPlace[placeKey(loc.Country, loc.State, loc.City)]; ok {
			return src, nil
		}
	} else if matches := d.byCity[city]; len(matches) == 1 {
		return matches[0], nil
	}

	if src, ok := d.byAlias[city]; ok {
		if loc.State == "" || normalizeState(loc.State) == normalizeState(src.City().State) {
			return src, nil
		}
	}

	return nil, unsupported
}

// PermitStatus looks up one permit. An unsupported location yields a
// Lookup with Supported false rather than an error.
func (d *Directory) PermitStatus(ctx context.Context, loc models.Location, permitNumber string) (*Lookup, error) {
	src, err := d.Resolve(loc)
	if err != nil {
		return unsupportedLookup(loc, err), nil
	}

	records, err := src.PermitStatus(ctx, permitNumber)
	if err != nil {
		return nil, err
	}

	lookup := supportedLookup(src, records)
	if lookup.Found && src.StatusField() != "" {
		var first map[string]any
		if json.Unmarshal(records[0], &first) == nil {
			lookup.Status = src.MapStatus(stringField(first, src.StatusField()))
		}
	}
	return lookup, nil
}

func (d *Directory) SearchBusinessPermits(ctx context.Context, loc models.Location, businessName string) (*Lookup, error) {
	src, err := d.Resolve(loc)
	if err != nil {
		return unsupportedLookup(loc, err), nil
	}

	records, err := src.SearchBusinessPermits(ctx, businessName, loc.ZipCode)
	if errors.Is(err, ErrSearchUnsupported) {
		lookup := supportedLookup(src, nil)
		lookup.Supported = false
		lookup.Message = err.Error()
		return lookup, nil
	}
	if err != nil {
		return nil, err
	}
	return supportedLookup(src, records), nil
}

// SupportedCities lists every jurisdiction in name order.
func (d *Directory) SupportedCities() []City {
	cities := make([]City, 0, len(d.sources))
	for _, src := range d.sources {
		cities = append(cities, src.City())
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Name < cities[j].Name })
	return cities
}

func supportedLookup(src Source, records []json.RawMessage) *Lookup {
	if records == nil {
		records = []json.RawMessage{}
	}
	c := src.City()
	return &Lookup{
		Supported: true,
		City:      c.Name,
		State:     c.State,
		Found:     len(records) > 0,
		Records:   records,
	}
}

func unsupportedLookup(loc models.Location, err error) *Lookup {
	return &Lookup{
		Supported: false,
		City:      loc.City,
		State:     loc.State,
		Records:   []json.RawMessage{},
		Message:   err.Error(),
	}
}
