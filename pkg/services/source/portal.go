package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultPortalURL     = "https://www.dmsguild.com"
	DefaultPortalTimeout = 60 * time.Second

	loginPath  = "/login.php"
	reportPath = "/royalty_report.php"
	dateLayout = "2006-01-02"

	// present on the login form; a report response containing it means the session was rejected
	loginMarker = "login_email_address"
)

type PortalConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Portal logs into the publisher portal over HTTP and scrapes the royalty report table
type Portal struct {
	baseURL string
	creds   CredentialProvider
	client  *http.Client
	now     func() time.Time
}

func NewPortal(cfg PortalConfig, creds CredentialProvider) (*Portal, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPortalURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPortalTimeout
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid portal url %q", cfg.BaseURL), err)
	}
	if creds == nil {
		return nil, domain.NewInvalidInputError("portal requires a credential provider", nil)
	}

	return &Portal{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: cfg.Timeout},
		now:     time.Now,
	}, nil
}

func (p *Portal) Name() string {
	return "portal"
}

// Fetch opens a fresh session, logs in and downloads the report for one period
func (p *Portal) Fetch(ctx context.Context, period domain.Period) (domain.RawReport, error) {
	logger := zerolog.Ctx(ctx).With().Str("period", period.Key()).Str("source", p.Name()).Logger()

	creds, err := p.creds.Credentials(ctx)
	if err != nil {
		return domain.RawReport{}, domain.NewAuthenticationError("portal credentials unavailable", err)
	}
	if creds.Empty() {
		return domain.RawReport{}, domain.NewAuthenticationError("portal credentials are empty", nil)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return domain.RawReport{}, fmt.Errorf("create cookie jar: %w", err)
	}
	session := &http.Client{Timeout: p.client.Timeout, Transport: p.client.Transport, Jar: jar}

	logger.Debug().Msg("logging into portal")
	if err := p.login(ctx, session, creds); err != nil {
		return domain.RawReport{}, err
	}

	body, err := p.report(ctx, session, period)
	if err != nil {
		return domain.RawReport{}, err
	}
	if strings.Contains(body, loginMarker) {
		return domain.RawReport{}, domain.NewAuthenticationError("portal rejected the login", nil)
	}

	rows, err := ParseReportTable(strings.NewReader(body))
	if err != nil {
		return domain.RawReport{}, err
	}

	logger.Info().Int("rows", len(rows)).Msg("fetched royalty report")
	return domain.RawReport{
		Period:    period,
		Header:    append([]string(nil), ReportHeader...),
		Rows:      rows,
		FetchedAt: p.now(),
		Source:    p.Name(),
	}, nil
}

func (p *Portal) login(ctx context.Context, session *http.Client, creds domain.Credentials) error {
	form := url.Values{
		"action":              {"process"},
		"login_email_address": {creds.Username},
		"login_password":      {creds.Secret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err = do(session, req)
	return err
}

func (p *Portal) report(ctx context.Context, session *http.Client, period domain.Period) (string, error) {
	q := url.Values{
		"startdate":     {period.Start().Format(dateLayout)},
		"enddate":       {period.End().Format(dateLayout)},
		"submit_report": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+reportPath+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build report request: %w", err)
	}
	return do(session, req)
}

// do executes a request and maps transport and status failures onto the error taxonomy
func do(session *http.Client, req *http.Request) (string, error) {
	resp, err := session.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", domain.NewSourceUnavailableError(fmt.Sprintf("%s %s", req.Method, req.URL.Path), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewSourceUnavailableError(fmt.Sprintf("read %s", req.URL.Path), err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.NewAuthenticationError(fmt.Sprintf("%s returned %d", req.URL.Path, resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return "", domain.NewSourceUnavailableError(fmt.Sprintf("%s returned %d", req.URL.Path, resp.StatusCode), nil)
	}
	return string(body), nil
}
