package municipal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T, opts DirectoryOptions) *Directory {
	t.Helper()
	d, err := NewDirectory(opts)
	require.NoError(t, err)
	return d
}

func TestDirectory_Resolve(t *testing.T) {
	d := newTestDirectory(t, DirectoryOptions{})

	cases := []struct {
		loc  models.Location
		want string
	}{
		{models.Location{City: "San Francisco", State: "CA"}, "san-francisco"},
		{models.Location{City: "  san   francisco "}, "san-francisco"},
		{models.Location{City: "SF"}, "san-francisco"},
		{models.Location{City: "Chicago", State: "IL", Country: "USA"}, "chicago"},
		{models.Location{City: "LA", State: "CA"}, "los-angeles"},
		{models.Location{City: "L.A."}, "los-angeles"},
		{models.Location{City: "houston", State: "tx"}, "houston"},
		{models.Location{City: "NYC"}, "new-york"},
		{models.Location{City: "new-york"}, "new-york"},
		{models.Location{City: "San Francisco", State: "California"}, "san-francisco"},
		{models.Location{City: "Chicago", State: "Illinois"}, "chicago"},
		{models.Location{City: "New York", State: "New York"}, "new-york"},
		{models.Location{City: "NYC", State: "new york", Country: "United States"}, "new-york"},
		{models.Location{City: "Houston", State: "Texas"}, "houston"},
	}
	for _, tc := range cases {
		src, err := d.Resolve(tc.loc)
		require.NoError(t, err, "%+v", tc.loc)
		assert.Equal(t, tc.want, src.City().Key, "%+v", tc.loc)
	}
}

func TestDirectory_ResolveRejectsSubstringCoincidences(t *testing.T) {
	d := newTestDirectory(t, DirectoryOptions{})

	for _, loc := range []models.Location{
		{City: "Atlanta", State: "GA"},
		{City: "Dallas"},
		{City: "South San Francisco", State: "CA"},
		{City: "Chicago", State: "TX"},
		{City: "LA", State: "NY"},
		{City: "Chicago", State: "Texas"},
		{City: ""},
	} {
		_, err := d.Resolve(loc)
		require.Error(t, err, "%+v", loc)
		assert.True(t, errors.Is(err, ErrUnsupportedJurisdiction))

		var unsupported *UnsupportedJurisdictionError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, loc.City, unsupported.City)
	}
}

func TestDirectory_SupportedCities(t *testing.T) {
	d := newTestDirectory(t, DirectoryOptions{})
	cities := d.SupportedCities()
	require.Len(t, cities, 5)

	var names []string
	for _, c := range cities {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Chicago", "Houston", "Los Angeles", "New York", "San Francisco"}, names)
}

func TestDirectory_PermitStatusUnsupportedIsNotAnError(t *testing.T) {
	d := newTestDirectory(t, DirectoryOptions{})

	lookup, err := d.PermitStatus(context.Background(), models.Location{City: "Atlanta", State: "GA"}, "X-1")
	require.NoError(t, err)
	assert.False(t, lookup.Supported)
	assert.Contains(t, lookup.Message, "not supported")
	assert.Empty(t, lookup.Records)
}

func TestDirectory_SocrataPermitStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "P-42", q.Get("permit_number"))
		assert.Equal(t, "sf-token", q.Get("$$app_token"))
		assert.Equal(t, "1", q.Get("$limit"))
		_, _ = io.WriteString(w, `[{"permit_number":"P-42","status":"Approved"}]`)
	}))
	defer srv.Close()

	d := newTestDirectory(t, DirectoryOptions{
		Settings: map[string]string{"SF_GOV_API_KEY": "sf-token"},
		BaseURLs: map[string]string{"san-francisco": srv.URL},
	})

	lookup, err := d.PermitStatus(context.Background(), models.Location{City: "San Francisco", State: "CA"}, "P-42")
	require.NoError(t, err)
	assert.True(t, lookup.Supported)
	assert.True(t, lookup.Found)
	assert.Equal(t, "Approved", lookup.Status)
	assert.Equal(t, "San Francisco", lookup.City)
	require.Len(t, lookup.Records, 1)
}

func TestDirectory_ArcGISUnwrapsFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PERMIT_NBR='O''BRIEN-1'", r.URL.Query().Get("where"))
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		_, _ = io.WriteString(w, `{"features":[{"attributes":{"PERMIT_NBR":"O'BRIEN-1","STATUS":"expired"}}]}`)
	}))
	defer srv.Close()

	d := newTestDirectory(t, DirectoryOptions{BaseURLs: map[string]string{"houston": srv.URL}})

	lookup, err := d.PermitStatus(context.Background(), models.Location{City: "Houston", State: "TX"}, "O'BRIEN-1")
	require.NoError(t, err)
	assert.True(t, lookup.Found)
	assert.Equal(t, "expired", lookup.Status)
	assert.JSONEq(t, `{"PERMIT_NBR":"O'BRIEN-1","STATUS":"expired"}`, string(lookup.Records[0]))
}

func TestDirectory_BearerSourceNeedsBaseURL(t *testing.T) {
	d := newTestDirectory(t, DirectoryOptions{})

	_, err := d.PermitStatus(context.Background(), models.Location{City: "Los Angeles"}, "F-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL not configured")
}

func TestDirectory_BearerSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer la-key", r.Header.Get("Authorization"))
		assert.Equal(t, "Taco Stand", r.URL.Query().Get("name"))
		assert.Equal(t, "90012", r.URL.Query().Get("zip"))
		_, _ = io.WriteString(w, `[{"id":1},{"id":2}]`)
	}))
	defer srv.Close()

	d := newTestDirectory(t, DirectoryOptions{Settings: map[string]string{
		"LA_HEALTH_API_URL": srv.URL,
		"LA_HEALTH_API_KEY": "la-key",
	}})

	lookup, err := d.SearchBusinessPermits(context.Background(), models.Location{City: "Los Angeles", ZipCode: "90012"}, "Taco Stand")
	require.NoError(t, err)
	assert.Len(t, lookup.Records, 2)
}

func TestDirectory_SearchUnsupportedForHouston(t *testing.T) {
	d := newTestDirectory(t, DirectoryOptions{})

	lookup, err := d.SearchBusinessPermits(context.Background(), models.Location{City: "Houston"}, "Anything")
	require.NoError(t, err)
	assert.False(t, lookup.Supported)
	assert.Equal(t, "Houston", lookup.City)
	assert.Equal(t, ErrSearchUnsupported.Error(), lookup.Message)
}

func TestNewDirectory_RejectsDuplicatePlaces(t *testing.T) {
	spec := SourceSpec{Key: "a", Name: "A", Country: "US", State: "CA", City: "Alpha", Kind: "socrata"}
	dup := spec
	dup.Key = "b"

	_, err := newDirectory([]SourceSpec{spec, dup}, DirectoryOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate jurisdiction")
}

func TestDirectory_NYCGradeMapsToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "41234567", r.URL.Query().Get("camis"))
		assert.Equal(t, "inspection_date DESC", r.URL.Query().Get("$order"))
		_, _ = io.WriteString(w, `[{"camis":"41234567","grade":"A","inspection_date":"2025-05-01T00:00:00.000"}]`)
	}))
	defer srv.Close()

	d := newTestDirectory(t, DirectoryOptions{BaseURLs: map[string]string{"new-york": srv.URL}})

	lookup, err := d.PermitStatus(context.Background(), models.Location{City: "New York", State: "New York"}, "41234567")
	require.NoError(t, err)
	assert.True(t, lookup.Found)
	assert.Equal(t, "approved", lookup.Status)
	assert.Equal(t, models.PermitApproved, NormalizeStatus(lookup.Status))
}
