package googleauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
)

const tokeninfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Revalidator re-checks a stored Google credential via the tokeninfo
// endpoint. A 4xx from Google is a confirmed invalidation; network failures
// and 5xx responses are transient and the caller fails open.
type Revalidator struct {
	httpClient *http.Client
	endpoint   string
	// domainAllowed decides whether the email's domain is still acceptable.
	domainAllowed func(domain string) bool
}

// RevalidatorConfig groups Revalidator dependencies.
type RevalidatorConfig struct {
	HTTPClient    *http.Client // Optional, defaults to a 5s-timeout client
	Endpoint      string       // Optional, defaults to Google's tokeninfo URL
	DomainAllowed func(domain string) bool
}

// NewRevalidator creates a tokeninfo-backed revalidator.
func NewRevalidator(cfg RevalidatorConfig) *Revalidator {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tokeninfoURL
	}
	domainAllowed := cfg.DomainAllowed
	if domainAllowed == nil {
		domainAllowed = func(string) bool { return true }
	}
	return &Revalidator{httpClient: httpClient, endpoint: endpoint, domainAllowed: domainAllowed}
}

// tokeninfoResponse is the subset of the tokeninfo payload the portal checks.
type tokeninfoResponse struct {
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"` // tokeninfo returns this as a string
	Expiry        string `json:"exp"`
}

// Revalidate checks the credential with the provider. err != nil means the
// check did not complete; Valid=false with nil err is provider-confirmed.
func (r *Revalidator) Revalidate(ctx context.Context, rawCredential string) (ports.RevalidationResult, error) {
	if rawCredential == "" {
		return ports.RevalidationResult{Valid: false, Reason: "no stored credential"}, nil
	}

	reqURL := r.endpoint + "?id_token=" + url.QueryEscape(rawCredential)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return ports.RevalidationResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build tokeninfo request")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return ports.RevalidationResult{}, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "reach tokeninfo endpoint")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return ports.RevalidationResult{}, apperrors.Newf(apperrors.ErrCodeServiceUnavailable,
			"tokeninfo returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		// Provider explicitly rejects the credential.
		return ports.RevalidationResult{Valid: false, Reason: "provider rejected credential"}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return ports.RevalidationResult{}, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "read tokeninfo response")
	}

	var info tokeninfoResponse
	if unmarshalErr := json.Unmarshal(body, &info); unmarshalErr != nil {
		return ports.RevalidationResult{}, apperrors.Wrap(unmarshalErr, apperrors.ErrCodeServiceUnavailable, "decode tokeninfo response")
	}

	if info.EmailVerified != "true" {
		return ports.RevalidationResult{Valid: false, Reason: "email no longer verified"}, nil
	}

	// tokeninfo reports exp as unix seconds in a string.
	if exp, parseErr := strconv.ParseInt(info.Expiry, 10, 64); parseErr == nil && exp > 0 {
		if time.Now().After(time.Unix(exp, 0)) {
			return ports.RevalidationResult{Valid: false, Reason: "credential expired"}, nil
		}
	}

	domain := domainOf(info.Email)
	if domain == "" || !r.domainAllowed(domain) {
		return ports.RevalidationResult{Valid: false, Reason: "domain no longer allowed"}, nil
	}

	return ports.RevalidationResult{Valid: true}, nil
}

func domainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
