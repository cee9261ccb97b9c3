package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"tourguide/internal/adapters/observability"
	"tourguide/internal/domain"
)

const defaultUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var ErrNoToken = errors.New("google: token exchange returned no access token")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AuthURL/TokenURL/UserinfoURL default to Google's endpoints; tests point
	// them at a local server.
	AuthURL     string
	TokenURL    string
	UserinfoURL string
	RPS         int
}

// Client implements the IdentityProvider port against Google's OAuth2
// endpoints. The exchange and the userinfo fetch are single-shot: a failed
// login is reported, never retried here.
type Client struct {
	oc          *oauth2.Config
	hc          *http.Client
	userinfoURL string
	rl          *rate.Limiter
}

func New(cfg Config) *Client {
	ep := googleoauth.Endpoint
	if cfg.AuthURL != "" {
		ep = oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
	}
	userinfo := cfg.UserinfoURL
	if userinfo == "" {
		userinfo = defaultUserinfoURL
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		oc: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     ep,
		},
		hc:          &http.Client{Timeout: 20 * time.Second},
		userinfoURL: userinfo,
		rl:          rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oc.AuthCodeURL(state)
}

// FetchIdentity exchanges the authorization code for a token and resolves the
// user's profile from the userinfo endpoint. The provider rejects a reused
// code at the exchange step, which surfaces here as a plain error.
func (c *Client) FetchIdentity(ctx context.Context, code string) (domain.Identity, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Identity{}, err
	}

	start := time.Now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.hc)
	tok, err := c.oc.Exchange(ctx, code)
	observability.ObserveExternal("google", "token", statusOf(err), time.Since(start))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return domain.Identity{}, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return domain.Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	start = time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("google", "userinfo", 0, time.Since(start))
		return domain.Identity{}, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("google", "userinfo", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Identity{}, fmt.Errorf("userinfo: status %d: %s", resp.StatusCode, body)
	}

	var profile struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return domain.Identity{}, fmt.Errorf("userinfo decode: %w", err)
	}

	username := profile.Email
	if username == "" {
		username = profile.Sub
	}
	return domain.Identity{
		Username: username,
		Name:     profile.Name,
		Email:    profile.Email,
		Provider: "google",
	}, nil
}

func statusOf(err error) int {
	if err == nil {
		return 200
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode
	}
	return 0
}
