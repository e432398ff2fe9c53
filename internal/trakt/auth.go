package trakt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/TobiSchelling/plexrec/internal/config"
)

// DefaultBaseURL is the Trakt API root.
const DefaultBaseURL = "https://api.trakt.tv"

// refreshWindow is how close to expiry a token is refreshed.
const refreshWindow = 24 * time.Hour

// Terminal device-flow failures.
var (
	ErrInvalidCode = errors.New("invalid device code")
	ErrCodeUsed    = errors.New("device code already used")
	ErrExpired     = errors.New("device code expired")
	ErrDenied      = errors.New("user denied authorization")
)

// DeviceCode is the response to a device code request.
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

// Auth runs the OAuth device flow and token refreshes.
type Auth struct {
	clientID     string
	clientSecret string
	http         *resty.Client

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAuth creates an Auth for the client credentials in cfg.
func NewAuth(cfg config.Trakt, baseURL string) *Auth {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Auth{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second).
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RequestDeviceCode starts the device flow.
func (a *Auth) RequestDeviceCode(ctx context.Context) (DeviceCode, error) {
	var dc DeviceCode
	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"client_id": a.clientID}).
		SetResult(&dc).
		Post("/oauth/device/code")
	if err != nil {
		return DeviceCode{}, fmt.Errorf("requesting device code: %w", err)
	}
	if resp.IsError() {
		return DeviceCode{}, fmt.Errorf("requesting device code: status %d", resp.StatusCode())
	}
	return dc, nil
}

// minPollInterval is Trakt's documented device polling interval.
const minPollInterval = 5 * time.Second

// PollToken polls until the user approves the code, a terminal status is
// returned, or the code expires. On success the returned Trakt config
// carries the new tokens.
func (a *Auth) PollToken(ctx context.Context, dc DeviceCode) (config.Trakt, error) {
	interval := time.Duration(dc.Interval) * time.Second
	if interval < minPollInterval {
		interval = minPollInterval
	}
	deadline := a.now().Add(time.Duration(dc.ExpiresIn) * time.Second)

	for {
		if dc.ExpiresIn > 0 && a.now().After(deadline) {
			return config.Trakt{}, ErrExpired
		}
		if err := a.sleep(ctx, interval); err != nil {
			return config.Trakt{}, err
		}

		var tok tokenResponse
		resp, err := a.http.R().
			SetContext(ctx).
			SetBody(map[string]string{
				"code":          dc.DeviceCode,
				"client_id":     a.clientID,
				"client_secret": a.clientSecret,
			}).
			SetResult(&tok).
			Post("/oauth/device/token")
		if err != nil {
			return config.Trakt{}, fmt.Errorf("polling device token: %w", err)
		}

		switch resp.StatusCode() {
		case http.StatusOK:
			return a.apply(config.Trakt{}, tok), nil
		case http.StatusBadRequest:
			// pending
		case http.StatusTooManyRequests:
			interval += time.Second
		case http.StatusNotFound:
			return config.Trakt{}, ErrInvalidCode
		case http.StatusConflict:
			return config.Trakt{}, ErrCodeUsed
		case http.StatusGone:
			return config.Trakt{}, ErrExpired
		case http.StatusTeapot:
			return config.Trakt{}, ErrDenied
		default:
			return config.Trakt{}, fmt.Errorf("polling device token: status %d", resp.StatusCode())
		}
	}
}

// NeedsRefresh reports whether the token expires within a day.
func NeedsRefresh(cfg config.Trakt, now time.Time) bool {
	if cfg.RefreshToken == "" {
		return false
	}
	return now.Add(refreshWindow).After(time.Unix(cfg.ExpiresAt, 0))
}

// Refresh exchanges the refresh token and returns cfg with new tokens.
func (a *Auth) Refresh(ctx context.Context, cfg config.Trakt) (config.Trakt, error) {
	var tok tokenResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"refresh_token": cfg.RefreshToken,
			"client_id":     a.clientID,
			"client_secret": a.clientSecret,
			"redirect_uri":  "urn:ietf:wg:oauth:2.0:oob",
			"grant_type":    "refresh_token",
		}).
		SetResult(&tok).
		Post("/oauth/token")
	if err != nil {
		return cfg, fmt.Errorf("refreshing token: %w", err)
	}
	if resp.IsError() {
		return cfg, fmt.Errorf("refreshing token: status %d", resp.StatusCode())
	}
	return a.apply(cfg, tok), nil
}

func (a *Auth) apply(cfg config.Trakt, tok tokenResponse) config.Trakt {
	created := tok.CreatedAt
	if created == 0 {
		created = a.now().Unix()
	}
	cfg.AccessToken = tok.AccessToken
	cfg.RefreshToken = tok.RefreshToken
	cfg.ExpiresAt = created + tok.ExpiresIn
	return cfg
}
