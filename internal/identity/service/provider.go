package service

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pillflow/pillflow-backend/internal/identity/repository"
	"github.com/pillflow/pillflow-backend/pkg/config"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// ProviderUser holds the OpenID Connect userinfo claims we use
type ProviderUser struct {
	Subject       string    `json:"sub"`
	Email         string    `json:"email"`
	EmailVerified claimBool `json:"email_verified"`
	Name          string    `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// claimBool decodes a boolean claim that some providers send as a string.
// A missing or unparseable claim is false.
type claimBool bool

func (b *claimBool) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseBool(strings.Trim(string(data), `"`))
	*b = claimBool(err == nil && v)
	return nil
}

// Metadata returns the non-empty claims as account metadata
func (u *ProviderUser) Metadata() repository.Metadata {
	meta := repository.Metadata{}
	for key, value := range map[string]string{
		"name":        u.Name,
		"given_name":  u.GivenName,
		"family_name": u.FamilyName,
		"avatar_url":  u.Picture,
	} {
		if v := strings.TrimSpace(value); v != "" {
			meta[key] = v
		}
	}
	return meta
}

// UserInfoFetcher resolves a provider access token to the provider's user
type UserInfoFetcher interface {
	UserInfo(ctx context.Context, provider, accessToken string) (*ProviderUser, error)
}

type userInfoEndpoint struct {
	client *resty.Client
	url    string
}

// ProviderClient calls the userinfo endpoint of each configured provider
type ProviderClient struct {
	endpoints map[string]userInfoEndpoint
	logger    *logger.Logger
}

// NewProviderClient creates a client per provider
func NewProviderClient(cfg *config.ProvidersConfig, log *logger.Logger) *ProviderClient {
	return &ProviderClient{
		endpoints: map[string]userInfoEndpoint{
			repository.ProviderGoogle:    newUserInfoEndpoint(cfg.Google),
			repository.ProviderMicrosoft: newUserInfoEndpoint(cfg.Microsoft),
		},
		logger: log.WithComponent("identity-provider"),
	}
}

func newUserInfoEndpoint(cfg config.ProviderConfig) userInfoEndpoint {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")
	return userInfoEndpoint{client: client, url: cfg.UserInfoURL}
}

// UserInfo fetches the provider's view of the token holder
func (c *ProviderClient) UserInfo(ctx context.Context, provider, accessToken string) (*ProviderUser, error) {
	endpoint, ok := c.endpoints[provider]
	if !ok {
		return nil, errors.BadRequest("unsupported provider: " + provider)
	}

	var user ProviderUser
	resp, err := endpoint.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&user).
		Get(endpoint.url)
	if err != nil {
		c.logger.Error().Err(err).Str("provider", provider).Msg("userinfo request failed")
		return nil, errors.Unavailable(provider + " sign-in is unavailable")
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, errors.Unauthorized("provider rejected the access token")
	case resp.IsError():
		c.logger.Error().Int("status", resp.StatusCode()).Str("provider", provider).Msg("userinfo returned an error")
		return nil, errors.Unavailable(provider + " sign-in is unavailable")
	}

	if user.Subject == "" || strings.TrimSpace(user.Email) == "" {
		return nil, errors.Unauthorized("provider did not return an email address")
	}
	return &user, nil
}
