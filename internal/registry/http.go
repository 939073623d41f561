package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient calls the registry's REST API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a registry client against the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type companyResponse struct {
	CompanyNumber string `json:"company_number"`
	CompanyName   string `json:"company_name"`
	CompanyStatus string `json:"company_status"`
	Address       struct {
		AddressLine1 string `json:"address_line_1"`
		Locality     string `json:"locality"`
		Region       string `json:"region"`
		PostalCode   string `json:"postal_code"`
	} `json:"registered_office_address"`
}

func (c *HTTPClient) Lookup(ctx context.Context, registrationNumber string) (*CompanyRecord, error) {
	endpoint := fmt.Sprintf("%s/company/%s", c.baseURL, url.PathEscape(registrationNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("registry request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("registry lookup: unexpected status %d", resp.StatusCode)
	}

	var body companyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("registry response: %w", err)
	}
	return &CompanyRecord{
		RegistrationNumber: body.CompanyNumber,
		Name:               body.CompanyName,
		Status:             body.CompanyStatus,
		Address:            body.Address.AddressLine1,
		Town:               body.Address.Locality,
		County:             body.Address.Region,
		Postcode:           body.Address.PostalCode,
	}, nil
}
