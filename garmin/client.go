// Package garmin implements the Garmin Connect integration: credential
// bundles, token refresh, remote fetching and the sync engine that turns
// provider payloads into persisted step and activity records.
package garmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenBundle is the combined OAuth1+OAuth2 credential set for one user's
// Garmin link, as exchanged with the provider. Optional provider fields are
// explicit nullable members rather than dynamic lookups.
type TokenBundle struct {
	OAuthToken       string     `json:"oauth_token"`
	OAuthTokenSecret string     `json:"oauth_token_secret"`
	MFAToken         *string    `json:"mfa_token,omitempty"`
	MFAExpiration    *time.Time `json:"mfa_expiration_timestamp,omitempty"`
	Domain           string     `json:"domain,omitempty"`

	Scope                 string `json:"scope"`
	JTI                   string `json:"jti"`
	TokenType             string `json:"token_type"`
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             *int64 `json:"expires_in,omitempty"`
	ExpiresAt             *int64 `json:"expires_at,omitempty"`
	RefreshTokenExpiresIn *int64 `json:"refresh_token_expires_in,omitempty"`
	RefreshTokenExpiresAt *int64 `json:"refresh_token_expires_at,omitempty"`
}

// StepsSummary is one element of the daily-steps endpoint response.
type StepsSummary struct {
	TotalSteps *int `json:"totalSteps"`
}

// ActivityPayload is one element of the activity-search endpoint response.
// StartTimeGMT is kept raw because the provider emits it as a datetime
// string, a numeric string or an epoch-milliseconds number depending on the
// activity source. Raw retains the complete payload for score re-derivation.
type ActivityPayload struct {
	ActivityID   int64  `json:"activityId"`
	ActivityName string `json:"activityName"`
	ActivityType struct {
		TypeKey string `json:"typeKey"`
	} `json:"activityType"`
	StartTimeGMT    json.RawMessage `json:"startTimeGMT"`
	DurationSeconds *float64        `json:"duration"`
	DistanceMeters  *float64        `json:"distance"`
	Calories        *float64        `json:"calories"`
	AverageHR       *float64        `json:"averageHR"`
	MaxHR           *float64        `json:"maxHR"`

	Raw json.RawMessage `json:"-"`
}

// ErrNoStartTime is returned when an activity payload has no usable start time.
var ErrNoStartTime = errors.New("activity has no start time")

// StartTime parses the flexible startTimeGMT field. Supported shapes:
// "2006-01-02 15:04:05" datetime strings (assumed UTC), numeric strings and
// plain numbers holding epoch milliseconds.
func (p *ActivityPayload) StartTime() (time.Time, error) {
	raw := strings.TrimSpace(string(p.StartTimeGMT))
	if raw == "" || raw == "null" {
		return time.Time{}, ErrNoStartTime
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(p.StartTimeGMT, &s); err != nil {
			return time.Time{}, fmt.Errorf("decode startTimeGMT: %w", err)
		}
		if strings.Contains(s, " ") && strings.Contains(s, "-") {
			t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse startTimeGMT %q: %w", s, err)
			}
			return t, nil
		}
		ms, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse startTimeGMT %q: %w", s, err)
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	}

	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse startTimeGMT %q: %w", raw, err)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// Client is the remote Garmin Connect surface the sync engine depends on.
// The production implementation is ConnectClient; tests substitute fakes.
type Client interface {
	// Login performs the SSO credential exchange and returns a fresh bundle.
	Login(ctx context.Context, email, password string) (*TokenBundle, error)
	// Exchange trades an expired bundle for a fresh one.
	Exchange(ctx context.Context, bundle TokenBundle) (*TokenBundle, error)
	// DailySteps fetches step summaries for one date (primary endpoint).
	DailySteps(ctx context.Context, bundle TokenBundle, date string) ([]StepsSummary, error)
	// DailySummary is the alternate per-date endpoint tried when DailySteps fails.
	DailySummary(ctx context.Context, bundle TokenBundle, date string) ([]StepsSummary, error)
	// SearchActivities fetches up to limit recent activities, optionally
	// filtered by a local-time date range (from/to as YYYY-MM-DD, empty to skip).
	SearchActivities(ctx context.Context, bundle TokenBundle, start, limit int, from, to string) ([]ActivityPayload, error)
}

// ConnectClient talks to the Garmin Connect API over HTTP. Requests are
// authenticated with the bundle's OAuth2 access token via an oauth2 transport.
type ConnectClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewConnectClient creates a client for the given API base URL.
func NewConnectClient(baseURL string) *ConnectClient {
	return &ConnectClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Login performs the SSO credential exchange and returns the full bundle.
func (c *ConnectClient) Login(ctx context.Context, email, password string) (*TokenBundle, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sso/signin", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var bundle TokenBundle
	if err := c.doJSON(req, &bundle); err != nil {
		return nil, fmt.Errorf("garmin login: %w", err)
	}
	return &bundle, nil
}

// Exchange trades the bundle's OAuth1 credentials for a fresh OAuth2 token
// set, mirroring the provider's token-exchange operation.
func (c *ConnectClient) Exchange(ctx context.Context, bundle TokenBundle) (*TokenBundle, error) {
	form := url.Values{}
	form.Set("oauth_token", bundle.OAuthToken)
	form.Set("oauth_token_secret", bundle.OAuthTokenSecret)
	if bundle.MFAToken != nil {
		form.Set("mfa_token", *bundle.MFAToken)
	}
	if bundle.Domain != "" {
		form.Set("domain", bundle.Domain)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/exchange", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	fresh := bundle
	if err := c.doJSON(req, &fresh); err != nil {
		return nil, fmt.Errorf("garmin token exchange: %w", err)
	}
	return &fresh, nil
}

// DailySteps calls the primary per-date step totals endpoint.
func (c *ConnectClient) DailySteps(ctx context.Context, bundle TokenBundle, date string) ([]StepsSummary, error) {
	path := fmt.Sprintf("/usersummary-service/stats/steps/daily/%s/%s", date, date)
	return c.getSummaries(ctx, bundle, path)
}

// DailySummary calls the alternate per-date summary endpoint.
func (c *ConnectClient) DailySummary(ctx context.Context, bundle TokenBundle, date string) ([]StepsSummary, error) {
	path := fmt.Sprintf("/usersummary-service/usersummary/daily/%s", date)
	return c.getSummaries(ctx, bundle, path)
}

// SearchActivities calls the paginated activity-search endpoint.
func (c *ConnectClient) SearchActivities(ctx context.Context, bundle TokenBundle, start, limit int, from, to string) ([]ActivityPayload, error) {
	q := url.Values{}
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(limit))
	if from != "" && to != "" {
		q.Set("startDateLocalFrom", from+"T00:00:00")
		q.Set("startDateLocalTo", to+"T23:59:59")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/activitylist-service/activities/search/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req, bundle)
	if err != nil {
		return nil, err
	}
	return DecodeActivities(body)
}

// DecodeActivities parses an activity-search response, retaining each
// element's raw JSON alongside the decoded fields.
func DecodeActivities(body []byte) ([]ActivityPayload, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	payloads := make([]ActivityPayload, 0, len(raws))
	for _, r := range raws {
		var p ActivityPayload
		if err := json.Unmarshal(r, &p); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		p.Raw = r
		payloads = append(payloads, p)
	}
	return payloads, nil
}

func (c *ConnectClient) getSummaries(ctx context.Context, bundle TokenBundle, path string) ([]StepsSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, bundle)
	if err != nil {
		return nil, err
	}
	var summaries []StepsSummary
	if err := json.Unmarshal(body, &summaries); err != nil {
		// Some summary endpoints return a single object instead of an array.
		var one StepsSummary
		if err2 := json.Unmarshal(body, &one); err2 != nil {
			return nil, fmt.Errorf("decode step summaries: %w", err)
		}
		summaries = []StepsSummary{one}
	}
	return summaries, nil
}

// do performs an authenticated API request using the bundle's access token.
func (c *ConnectClient) do(req *http.Request, bundle TokenBundle) ([]byte, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: bundle.AccessToken,
		TokenType:   bundle.TokenType,
	})
	ctx := context.WithValue(req.Context(), oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, src)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("garmin api %s: status %d: %s", req.URL.Path, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func (c *ConnectClient) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return json.Unmarshal(body, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
