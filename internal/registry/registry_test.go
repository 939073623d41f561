package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prosreg/internal/platform/cache"
)

func TestHTTPClientLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/company/01234567":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"company_number": "01234567",
				"company_name": "ACME WIDGETS LIMITED",
				"company_status": "active",
				"registered_office_address": {
					"address_line_1": "1 Factory Lane",
					"locality": "Sheffield",
					"region": "South Yorkshire",
					"postal_code": "S1 1AA"
				}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)

	record, err := client.Lookup(context.Background(), "01234567")
	require.NoError(t, err)
	require.Equal(t, "ACME WIDGETS LIMITED", record.Name)
	require.Equal(t, "S1 1AA", record.Postcode)

	_, err = client.Lookup(context.Background(), "99999999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPClientSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	_, err := client.Lookup(context.Background(), "01234567")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

// countingClient tracks upstream calls behind the cached decorator.
type countingClient struct {
	upstream Client
	calls    int
}

func (c *countingClient) Lookup(ctx context.Context, registrationNumber string) (*CompanyRecord, error) {
	c.calls++
	return c.upstream.Lookup(ctx, registrationNumber)
}

func TestCachedClientServesFromCache(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()
	mock.Register(CompanyRecord{RegistrationNumber: "01234567", Name: "ACME WIDGETS LIMITED"})
	counting := &countingClient{upstream: mock}
	cached := NewCachedClient(counting, cache.NewMemory(), time.Minute, nil)

	first, err := cached.Lookup(ctx, "01234567")
	require.NoError(t, err)
	second, err := cached.Lookup(ctx, "01234567")
	require.NoError(t, err)
	require.Equal(t, first.Name, second.Name)
	require.Equal(t, 1, counting.calls, "second lookup must be served from cache")
}

func TestCachedClientDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()
	counting := &countingClient{upstream: mock}
	cached := NewCachedClient(counting, cache.NewMemory(), time.Minute, nil)

	_, err := cached.Lookup(ctx, "01234567")
	require.ErrorIs(t, err, ErrNotFound)

	// The company registers between lookups and must become visible.
	mock.Register(CompanyRecord{RegistrationNumber: "01234567", Name: "Late Registered Limited"})
	record, err := cached.Lookup(ctx, "01234567")
	require.NoError(t, err)
	require.Equal(t, "Late Registered Limited", record.Name)
	require.Equal(t, 2, counting.calls)
}

func TestMockClientFailWith(t *testing.T) {
	mock := NewMockClient()
	boom := errors.New("registry down")
	mock.FailWith(boom)

	_, err := mock.Lookup(context.Background(), "01234567")
	require.ErrorIs(t, err, boom)

	mock.FailWith(nil)
	_, err = mock.Lookup(context.Background(), "01234567")
	require.ErrorIs(t, err, ErrNotFound)
}
