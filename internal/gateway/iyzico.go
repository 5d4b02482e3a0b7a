package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	initializePath = "/payment/iyzipos/checkoutform/initialize/auth/ecom"
	retrievePath   = "/payment/iyzipos/checkoutform/auth/ecom/detail"
)

// IyzicoClient talks to the iyzico-style hosted checkout API: a JSON POST to
// open the payment page session and another to read its final state.
type IyzicoClient struct {
	log       *slog.Logger
	baseURL   string
	apiKey    string
	secretKey string
	client    *http.Client
}

var _ CheckoutGateway = (*IyzicoClient)(nil)

func NewIyzicoClient(log *slog.Logger, baseURL, apiKey, secretKey string, timeout time.Duration) *IyzicoClient {
	return &IyzicoClient{
		log:       log,
		baseURL:   baseURL,
		apiKey:    apiKey,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *IyzicoClient) InitializeCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	const op = "gateway.IyzicoClient.InitializeCheckout"

	var result CheckoutResult
	if err := c.post(ctx, initializePath, req, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

func (c *IyzicoClient) RetrieveResult(ctx context.Context, token string) (*PaymentResult, error) {
	const op = "gateway.IyzicoClient.RetrieveResult"

	body := map[string]string{"token": token}
	var result PaymentResult
	if err := c.post(ctx, retrievePath, body, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

func (c *IyzicoClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	nonce, err := randomNonce()
	if err != nil {
		return err
	}
	req.Header.Set("x-iyzi-rnd", nonce)
	req.Header.Set("Authorization", c.authorization(nonce, jsonData))

	c.log.Debug("gateway request", slog.String("path", path))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}
	return nil
}

// authorization signs nonce+body with the secret key. The signature scheme
// follows the provider's request-signing contract: the server recomputes the
// same HMAC over the payload it received.
func (c *IyzicoClient) authorization(nonce string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(nonce))
	mac.Write(body)
	return "IYZWS " + c.apiKey + ":" + hex.EncodeToString(mac.Sum(nil))
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
