package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Config holds Daraja credentials and endpoints.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string

	// BaseURL defaults to the production Daraja host. Overridable for the
	// sandbox and for tests.
	BaseURL string
}

// Client talks to the Daraja API. The bearer credential is fetched lazily
// and cached until it expires.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	mu  sync.Mutex
	tok *oauth2.Token
}

// New creates a Daraja client. A nil httpClient gets a bounded-timeout
// default; provider calls should never pin a request goroutine forever.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.safaricom.co.ke"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, now: time.Now}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"` // Daraja sends seconds as a string
}

// AccessToken returns a valid bearer token, fetching a new one if the
// cached credential is missing or expired. Daraja's token endpoint is a
// basic-auth GET, not an RFC 6749 client-credentials POST, so the fetch is
// done by hand and the result kept as an oauth2.Token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tok.Valid() {
		return c.tok.AccessToken, nil
	}

	url := c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("oauth request returned %d: %s", resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode oauth response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("oauth response missing access_token")
	}

	lifetime := time.Hour
	if secs, err := strconv.Atoi(tr.ExpiresIn); err == nil && secs > 0 {
		lifetime = time.Duration(secs) * time.Second
	}
	// Refresh a little early rather than race the provider's clock.
	c.tok = &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   "Bearer",
		Expiry:      c.now().Add(lifetime - 30*time.Second),
	}
	return c.tok.AccessToken, nil
}

// STKPushRequest captures the per-payment fields of a push-payment request.
// Shortcode, passkey, and callback URL come from the client config.
type STKPushRequest struct {
	Phone            string
	Amount           float64
	AccountReference string
	TransactionDesc  string
}

type stkPushPayload struct {
	BusinessShortCode string  `json:"BusinessShortCode"`
	Password          string  `json:"Password"`
	Timestamp         string  `json:"Timestamp"`
	TransactionType   string  `json:"TransactionType"`
	Amount            float64 `json:"Amount"`
	PartyA            string  `json:"PartyA"`
	PartyB            string  `json:"PartyB"`
	PhoneNumber       string  `json:"PhoneNumber"`
	CallBackURL       string  `json:"CallBackURL"`
	AccountReference  string  `json:"AccountReference"`
	TransactionDesc   string  `json:"TransactionDesc"`
}

// STKPush submits a push-payment request and returns the provider's raw
// JSON response, which callers pass through to their own clients.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (json.RawMessage, error) {
	bearer, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := timestamp(c.now())
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password(c.cfg.Shortcode, c.cfg.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount,
		PartyA:            req.Phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.TransactionDesc,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := c.cfg.BaseURL + "/mpesa/stkpush/v1/processrequest"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stk push request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("stk push returned %d: %s", resp.StatusCode, respBody)
	}
	return json.RawMessage(respBody), nil
}

// timestamp renders t the way Daraja wants it: YYYYMMDDHHmmss.
func timestamp(t time.Time) string {
	return t.UTC().Format("20060102150405")
}

// password derives the STK push password for a timestamp.
func password(shortcode, passkey, ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + ts))
}
