// Package minter implements the HTTP client for the persistent identifier
// minting service. The service has separate test and production endpoints;
// a test-mode identifier is throwaway and must never be persisted.
package minter

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/ausgeophys/metasync/pkg/constants"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/reconcile"
)

// successCode is the service's response code for a minted identifier.
const successCode = "MT001"

// Client mints persistent identifiers. It satisfies the reconcile.Minter
// contract.
type Client struct {
	baseURL    string
	mode       reconcile.Mode
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

// New creates a minter client for the service at baseURL in the given mode.
func New(baseURL string, mode reconcile.Mode, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		mode:       mode,
		httpClient: &http.Client{Timeout: constants.DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode implements reconcile.Minter.
func (c *Client) Mode() reconcile.Mode { return c.mode }

// Mint implements reconcile.Minter. Citation fields are posted as a form;
// the response is an XML envelope with a response code, message and the
// minted identifier.
func (c *Client) Mint(ctx context.Context, mr reconcile.MintRequest) (*reconcile.MintResult, error) {
	form := url.Values{}
	form.Set("ecat_id", mr.ECatID)
	form.Set("title", mr.Title)
	form.Set("creators", strings.Join(mr.Authors, "; "))
	form.Set("publisher", mr.Publisher)
	form.Set("subjects", strings.Join(mr.Subjects, "; "))
	form.Set("description", mr.Description)
	if mr.Year > 0 {
		form.Set("publication_year", strconv.Itoa(mr.Year))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &mserrors.MintError{Mode: string(c.mode), Status: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &mserrors.MintError{Mode: string(c.mode), Status: "unreachable", Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &mserrors.MintError{Mode: string(c.mode), Status: resp.Status, Err: mserrors.ErrMintingFailed}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &mserrors.MintError{Mode: string(c.mode), Status: "read", Err: err}
	}
	return parseResponse(data, c.mode)
}

// parseResponse decodes the service's XML envelope.
func parseResponse(data []byte, mode reconcile.Mode) (*reconcile.MintResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &mserrors.MintError{Mode: string(mode), Status: "malformed response", Err: err}
	}

	code := elementText(doc, "//responsecode")
	if code != successCode {
		msg := elementText(doc, "//message")
		if msg == "" {
			msg = "minting rejected"
		}
		return nil, &mserrors.MintError{Mode: string(mode), Status: code + ": " + msg, Err: mserrors.ErrMintingFailed}
	}

	doi := elementText(doc, "//doi")
	if doi == "" {
		return nil, &mserrors.MintError{Mode: string(mode), Status: "response carries no identifier", Err: mserrors.ErrMintingFailed}
	}
	return &reconcile.MintResult{Identifier: doi, Status: code}, nil
}

func elementText(doc *etree.Document, path string) string {
	if el := doc.FindElement(path); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}
