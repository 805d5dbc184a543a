// Package auth acquires a Bulk API session through the SOAP login service.
// Production and sandbox login hosts are supported; the bulk client only
// ever sees the resulting session id and instance host.
package auth

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"sfbulk/pkg/bulk"
)

const (
	productionLoginHost = "https://login.salesforce.com"
	sandboxLoginHost    = "https://test.salesforce.com"
)

// Config defines login settings. Password and SecurityToken are sent
// concatenated, as the SOAP login service expects.
type Config struct {
	Username      string
	Password      string
	SecurityToken string
	Sandbox       bool
	APIVersion    string
	LoginURL      string // overrides the production/sandbox host, for tests
	HTTPClient    *http.Client
}

// Client performs SOAP username/password logins.
type Client struct {
	loginURL   string
	username   string
	password   string
	httpClient *http.Client
}

// New instantiates a login client.
func New(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("auth: username and password are required")
	}

	version := cfg.APIVersion
	if version == "" {
		version = "37.0"
	}

	host := cfg.LoginURL
	if host == "" {
		host = productionLoginHost
		if cfg.Sandbox {
			host = sandboxLoginHost
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		loginURL:   strings.TrimSuffix(host, "/") + "/services/Soap/u/" + version,
		username:   cfg.Username,
		password:   cfg.Password + cfg.SecurityToken,
		httpClient: httpClient,
	}, nil
}

// Login posts the SOAP login envelope and returns the session id and the
// instance host extracted from the server URL in the response.
func (c *Client) Login(ctx context.Context) (bulk.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(c.envelope()))
	if err != nil {
		return bulk.Session{}, fmt.Errorf("auth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "login")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return bulk.Session{}, fmt.Errorf("auth: login request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return bulk.Session{}, fmt.Errorf("auth: read login response: %w", err)
	}

	fields, err := flatten(body)
	if err != nil {
		return bulk.Session{}, err
	}

	if fault := fields["faultstring"]; fault != "" {
		return bulk.Session{}, fmt.Errorf("auth: login failed: %s", fault)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return bulk.Session{}, fmt.Errorf("auth: login failed with status %d", resp.StatusCode)
	}

	sessionID := fields["sessionId"]
	serverURL := fields["serverUrl"]
	if sessionID == "" || serverURL == "" {
		return bulk.Session{}, fmt.Errorf("auth: login response carries no session")
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return bulk.Session{}, fmt.Errorf("auth: parse server url: %w", err)
	}

	return bulk.Session{ID: sessionID, Host: u.Scheme + "://" + u.Host}, nil
}

func (c *Client) envelope() []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="urn:partner.soap.sforce.com">`)
	b.WriteString(`<soapenv:Body><urn:login><urn:username>`)
	_ = xml.EscapeText(&b, []byte(c.username))
	b.WriteString(`</urn:username><urn:password>`)
	_ = xml.EscapeText(&b, []byte(c.password))
	b.WriteString(`</urn:password></urn:login></soapenv:Body></soapenv:Envelope>`)
	return b.Bytes()
}

// flatten maps every leaf element's local name to its text, whatever the
// nesting. The login response has no duplicate leaf names we care about.
func flatten(data []byte) (map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	fields := make(map[string]string)

	var name string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("auth: parse login response: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name = t.Name.Local
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if t.Name.Local == name && text.Len() > 0 {
				fields[name] = text.String()
			}
		}
	}
	return fields, nil
}
