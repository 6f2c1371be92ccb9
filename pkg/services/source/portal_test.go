package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportPage = `<html><body>
<table><tr><td>navigation</td></tr></table>
<table cellpadding="5" cellspacing="0" border="1">
  <tr><th>Publisher</th><th>Title</th><th>SKU</th><th>Units</th><th>Net</th><th>Rate</th><th>Royalties</th></tr>
  <tr><td>Acme</td><td> Abyssal
     Depths </td><td>A-1</td><td>3</td><td>$30.00</td><td>50%</td><td>$15.00</td></tr>
  <tr><td>Acme</td><td><a href="/p/2">Bastion</a></td><td>B-2</td><td>1</td><td>$9.99</td><td>50%</td><td>$5.00</td></tr>
  <tr><td colspan="6">Total</td><td>$20.00</td></tr>
</table>
<span class="standardText">done</span>
</body></html>`

const loginPage = `<html><form><input id="login_email_address" name="login_email_address"></form></html>`

type staticCreds struct {
	creds domain.Credentials
	err   error
}

func (s staticCreds) Credentials(context.Context) (domain.Credentials, error) {
	return s.creds, s.err
}

// fakePortal issues a session cookie on a valid login and serves the report to holders of it
func fakePortal(t *testing.T, reportStatus int) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.php", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("login_email_address") == "author@example.com" && r.PostForm.Get("login_password") == "s3cret" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/royalty_report.php", func(w http.ResponseWriter, r *http.Request) {
		if reportStatus != http.StatusOK {
			w.WriteHeader(reportStatus)
			return
		}
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("startdate"))
		assert.Equal(t, "2024-02-29", r.URL.Query().Get("enddate"))
		if c, err := r.Cookie("session"); err != nil || c.Value != "ok" {
			_, _ = w.Write([]byte(loginPage))
			return
		}
		_, _ = w.Write([]byte(reportPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var february = domain.Period{Year: 2024, Month: time.February}

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func TestPortal_Fetch(t *testing.T) {
	srv := fakePortal(t, http.StatusOK)
	p, err := NewPortal(PortalConfig{BaseURL: srv.URL, Timeout: time.Second},
		staticCreds{creds: domain.Credentials{Username: "author@example.com", Secret: "s3cret"}})
	require.NoError(t, err)

	raw, err := p.Fetch(testContext(t), february)

	require.NoError(t, err)
	assert.Equal(t, ReportHeader, raw.Header)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, []string{"Acme", "Abyssal Depths", "A-1", "3", "$30.00", "50%", "$15.00"}, raw.Rows[0])
	assert.Equal(t, "Bastion", raw.Rows[1][1])
	assert.Equal(t, "portal", raw.Source)
	assert.Equal(t, february, raw.Period)
}

func TestPortal_RejectedLoginIsAuthenticationError(t *testing.T) {
	srv := fakePortal(t, http.StatusOK)
	p, err := NewPortal(PortalConfig{BaseURL: srv.URL},
		staticCreds{creds: domain.Credentials{Username: "author@example.com", Secret: "wrong"}})
	require.NoError(t, err)

	_, err = p.Fetch(testContext(t), february)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthentication))
	assert.False(t, domain.IsRetryable(err))
}

func TestPortal_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   *domain.Error
	}{
		{http.StatusForbidden, domain.ErrAuthentication},
		{http.StatusUnauthorized, domain.ErrAuthentication},
		{http.StatusBadGateway, domain.ErrSourceUnavailable},
		{http.StatusTooManyRequests, domain.ErrSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := fakePortal(t, tt.status)
			p, err := NewPortal(PortalConfig{BaseURL: srv.URL},
				staticCreds{creds: domain.Credentials{Username: "author@example.com", Secret: "s3cret"}})
			require.NoError(t, err)

			_, err = p.Fetch(testContext(t), february)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestPortal_UnreachableIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewPortal(PortalConfig{BaseURL: url, Timeout: 200 * time.Millisecond},
		staticCreds{creds: domain.Credentials{Username: "u", Secret: "s"}})
	require.NoError(t, err)

	_, err = p.Fetch(testContext(t), february)
	assert.True(t, domain.IsRetryable(err))
}

func TestPortal_MissingCredentials(t *testing.T) {
	p, err := NewPortal(PortalConfig{}, staticCreds{err: errors.New("vault locked")})
	require.NoError(t, err)

	_, err = p.Fetch(testContext(t), february)
	assert.True(t, errors.Is(err, domain.ErrAuthentication))
}

func TestParseReportTable_NoTable(t *testing.T) {
	_, err := ParseReportTable(strings.NewReader("<html><p>maintenance</p></html>"))
	assert.True(t, errors.Is(err, domain.ErrSchema))
}
