// Package registry implements the HTTP client for the survey registry
// service. One survey's fields arrive as a flat XML ROW element.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/ausgeophys/metasync/pkg/constants"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// Client fetches survey registry rows. It satisfies the
// sources.RegistryClient contract.
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

// New creates a registry client for the service at baseURL.
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

// FetchFields retrieves one survey's registry fields as a flat tree, field
// names upper-cased in row order. A survey the registry does not know is a
// not-found error.
func (c *Client) FetchFields(ctx context.Context, surveyID int) (*metatree.Tree, error) {
	endpoint := c.baseURL + "?surveyno=" + strconv.Itoa(surveyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, mserrors.NewCollaboratorError("registry", 0, "building request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mserrors.NewCollaboratorError("registry", 0, "request failed", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, mserrors.NewCollaboratorError("registry", resp.StatusCode,
			fmt.Sprintf("unexpected status fetching survey %d", surveyID), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mserrors.WrapIO("read", "registry response", err)
	}
	return parseRow(data, surveyID)
}

// parseRow extracts the first ROW element's child fields.
func parseRow(data []byte, surveyID int) (*metatree.Tree, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, mserrors.WrapParse("xml", fmt.Sprintf("survey %d", surveyID), err)
	}

	row := doc.FindElement("//ROW")
	if row == nil {
		return nil, mserrors.NewNotFoundError("survey", strconv.Itoa(surveyID))
	}

	fields := metatree.New()
	for _, el := range row.ChildElements() {
		text := strings.TrimSpace(el.Text())
		if text == "" {
			continue
		}
		fields.Set(strings.ToUpper(el.Tag), text)
	}
	return fields, nil
}
