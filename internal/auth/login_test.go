package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"
    xmlns="urn:partner.soap.sforce.com">
  <soapenv:Body>
    <loginResponse>
      <result>
        <serverUrl>https://na15.salesforce.com/services/Soap/u/37.0/00Dx0</serverUrl>
        <sessionId>00Dx0!session.token</sessionId>
        <userId>005x0000000001</userId>
      </result>
    </loginResponse>
  </soapenv:Body>
</soapenv:Envelope>`

const faultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <soapenv:Fault>
      <faultcode>INVALID_LOGIN</faultcode>
      <faultstring>INVALID_LOGIN: Invalid username, password, security token</faultstring>
    </soapenv:Fault>
  </soapenv:Body>
</soapenv:Envelope>`

func TestLogin(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "login", r.Header.Get("SOAPAction"))
		require.Contains(t, r.URL.Path, "/services/Soap/u/37.0")

		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, loginResponse)
	}))
	defer srv.Close()

	c, err := New(Config{
		Username:      "user@example.com",
		Password:      "hunter2",
		SecurityToken: "TOKEN",
		LoginURL:      srv.URL,
	})
	require.NoError(t, err)

	session, err := c.Login(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "00Dx0!session.token", session.ID)
	assert.Equal(t, "https://na15.salesforce.com", session.Host)

	assert.Contains(t, gotBody, "<urn:username>user@example.com</urn:username>")
	assert.Contains(t, gotBody, "<urn:password>hunter2TOKEN</urn:password>",
		"password and security token are sent concatenated")
}

func TestLoginFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, faultResponse)
	}))
	defer srv.Close()

	c, err := New(Config{Username: "u", Password: "p", LoginURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_LOGIN")
}

func TestLoginEscapesCredentials(t *testing.T) {
	c, err := New(Config{Username: "a&b", Password: "p<w"})
	require.NoError(t, err)

	env := string(c.envelope())
	assert.Contains(t, env, "<urn:username>a&amp;b</urn:username>")
	assert.Contains(t, env, "<urn:password>p&lt;w</urn:password>")
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{Username: "u"})
	assert.Error(t, err)

	_, err = New(Config{Password: "p"})
	assert.Error(t, err)
}

func TestLoginHostSelection(t *testing.T) {
	prod, err := New(Config{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prod.loginURL, productionLoginHost))

	sand, err := New(Config{Username: "u", Password: "p", Sandbox: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sand.loginURL, sandboxLoginHost))
}
