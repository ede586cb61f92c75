package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultSolapiBaseURL = "https://api.solapi.com"
	solapiSendPath       = "/messages/v4/send-many/detail"

	TextCodeGatewayFailed = "GATEWAY_SEND_FAILED"
)

// SolapiClient talks to the Solapi messaging REST API.
type SolapiClient struct {
	APIKey    string
	APISecret string
	BaseURL   string
	HTTP      *http.Client
	Limiter   *rate.Limiter
	Now       func() time.Time
	Salt      func() string
}

// NewSolapiClient builds a client. ratePerSec <= 0 disables throttling.
func NewSolapiClient(apiKey, apiSecret, baseURL string, ratePerSec int) *SolapiClient {
	if baseURL == "" {
		baseURL = DefaultSolapiBaseURL
	}
	c := &SolapiClient{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		Now: func() time.Time {
			return time.Now().UTC()
		},
		Salt: uuid.NewString,
	}
	if ratePerSec > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return c
}

type solapiMessage struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

type solapiSendRequest struct {
	Messages []solapiMessage `json:"messages"`
}

type solapiSendResponse struct {
	GroupInfo struct {
		GroupID string `json:"groupId"`
		Count   struct {
			Total             int `json:"total"`
			RegisteredSuccess int `json:"registeredSuccess"`
			RegisteredFailed  int `json:"registeredFailed"`
		} `json:"count"`
	} `json:"groupInfo"`
	FailedMessageList []struct {
		To            string `json:"to"`
		StatusCode    string `json:"statusCode"`
		StatusMessage string `json:"statusMessage"`
	} `json:"failedMessageList"`
}

func (c *SolapiClient) Send(ctx context.Context, msg Message) (DeliveryResult, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return DeliveryResult{}, gatewayError(err, "rate limit wait")
		}
	}

	b, err := json.Marshal(solapiSendRequest{Messages: []solapiMessage{{To: msg.To, From: msg.From, Text: msg.Text}}})
	if err != nil {
		return DeliveryResult{}, gatewayError(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+solapiSendPath, bytes.NewReader(b))
	if err != nil {
		return DeliveryResult{}, gatewayError(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return DeliveryResult{}, gatewayError(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return DeliveryResult{}, gatewayError(err, "read response")
	}
	if resp.StatusCode >= 300 {
		return DeliveryResult{}, gatewayError(
			fmt.Errorf("solapi api error: status=%d body=%s", resp.StatusCode, string(body)),
			"send request",
		)
	}

	var parsed solapiSendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return DeliveryResult{}, gatewayError(err, "decode response")
	}

	res := DeliveryResult{
		Registered: parsed.GroupInfo.Count.RegisteredSuccess,
		Failed:     parsed.GroupInfo.Count.RegisteredFailed,
	}
	if len(parsed.FailedMessageList) > 0 {
		f := parsed.FailedMessageList[0]
		res.Reason = strings.TrimSpace(f.StatusCode + " " + f.StatusMessage)
	}
	return res, nil
}

// authorization builds the HMAC-SHA256 header: signature = hex(HMAC(secret, date+salt)).
func (c *SolapiClient) authorization() string {
	date := c.Now().Format(time.RFC3339)
	salt := c.Salt()
	return fmt.Sprintf("HMAC-SHA256 apiKey=%s, date=%s, salt=%s, signature=%s",
		c.APIKey, date, salt, Sign(c.APISecret, date, salt))
}

// Sign returns the hex HMAC-SHA256 of date+salt keyed by secret.
func Sign(secret, date, salt string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(date + salt))
	return hex.EncodeToString(mac.Sum(nil))
}

func gatewayError(source error, op string) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "gateway: "+op+" failed").
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeGatewayFailed)
}
