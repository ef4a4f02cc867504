package googleauth

// Package googleauth verifies Google identity credentials for the portal.
// It accepts either a raw ID token or an authorization code; the code path
// performs a confidential exchange server-side and verifies the resulting ID
// token the same way.

import (
	"context"
	"errors"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
	"golang.org/x/oauth2"
)

const issuerURL = "https://accounts.google.com"

// Verifier implements ports.CredentialVerifier against Google.
type Verifier struct {
	config     *oauth2.Config
	verifier   *gooidc.IDTokenVerifier
	httpClient *http.Client
}

// Config holds Google client configuration for the verifier.
type Config struct {
	ClientID string
	// ClientSecret is used only for the server-side code exchange and must
	// never reach the caller.
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client // Optional, defaults to a 10s-timeout client
}

// NewVerifier discovers Google's OIDC configuration and prepares an ID token
// verifier bound to the configured client ID.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	provider, err := gooidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "discover google oidc provider")
	}

	return &Verifier{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
			Endpoint:     provider.Endpoint(),
		},
		verifier:   provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		httpClient: httpClient,
	}, nil
}

// idTokenClaims is the subset of Google ID token claims the portal consumes.
type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify validates the credential and returns the verified identity.
// Signature, audience, and expiry failures map to invalid_assertion; an
// unverified email to email_not_verified.
func (v *Verifier) Verify(ctx context.Context, cred ports.Credential) (domainauth.Identity, error) {
	rawIDToken := cred.IDToken

	if rawIDToken == "" {
		if cred.Code == "" {
			return domainauth.Identity{}, apperrors.New(apperrors.ErrCodeInvalidAssertion, "credential is required")
		}
		exchanged, err := v.exchangeCode(ctx, cred)
		if err != nil {
			return domainauth.Identity{}, err
		}
		rawIDToken = exchanged
	}

	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeInvalidAssertion, "verify id token")
	}

	var claims idTokenClaims
	if claimsErr := idToken.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, apperrors.Wrap(claimsErr, apperrors.ErrCodeInvalidAssertion, "parse id token claims")
	}
	if !claims.EmailVerified {
		return domainauth.Identity{}, apperrors.New(apperrors.ErrCodeEmailNotVerified, "email not verified by provider")
	}

	return domainauth.Identity{
		SubjectID:     idToken.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		PictureURL:    claims.Picture,
		EmailVerified: claims.EmailVerified,
		RawCredential: rawIDToken,
		IssuedAt:      idToken.IssuedAt,
		ExpiresAt:     idToken.Expiry,
	}, nil
}

// exchangeCode trades an authorization code for an ID token. The redirect URI
// must match the one the code was issued for.
func (v *Verifier) exchangeCode(ctx context.Context, cred ports.Credential) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)

	opts := []oauth2.AuthCodeOption{}
	if cred.RedirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", cred.RedirectURI))
	}

	tok, err := v.config.Exchange(ctx, cred.Code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", apperrors.Wrap(err, apperrors.ErrCodeInvalidAssertion, "exchange authorization code")
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "reach token endpoint")
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", apperrors.New(apperrors.ErrCodeInvalidAssertion, "token response missing id_token")
	}
	return rawIDToken, nil
}
