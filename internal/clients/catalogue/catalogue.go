// Package catalogue implements the HTTP client for the metadata catalogue
// service. Records are fetched as raw ISO XML by dataset identifier.
package catalogue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ausgeophys/metasync/pkg/constants"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
)

// recordPath is the catalogue's record-by-identifier endpoint.
const recordPath = "/srv/eng/xml.metadata.get"

// Client fetches catalogue records. It satisfies the
// sources.CatalogueClient contract.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a catalogue client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: constants.DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRecord retrieves the raw XML record for a dataset identifier.
func (c *Client) FetchRecord(ctx context.Context, identifier string) ([]byte, error) {
	endpoint := c.baseURL + recordPath + "?uuid=" + url.QueryEscape(identifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, mserrors.NewCollaboratorError("catalogue", 0, "building request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mserrors.NewCollaboratorError("catalogue", 0, "request failed", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, mserrors.NewNotFoundError("catalogue record", identifier)
	default:
		return nil, mserrors.NewCollaboratorError("catalogue", resp.StatusCode,
			fmt.Sprintf("unexpected status fetching record %s", identifier), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mserrors.WrapIO("read", "catalogue response", err)
	}
	return data, nil
}
