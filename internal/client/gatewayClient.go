package client

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
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/config"

	"github.com/shopspring/decimal"
)

// GatewayClient wraps the external payment gateway. CreateIntent reserves an
// amount gateway-side; VerifyConfirmation authenticates an inbound payment
// confirmation. Neither touches business state.
type GatewayClient interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*CreateIntentResponse, error)
	VerifyConfirmation(intentID, paymentRef, suppliedSignature string) error
}

type CreateIntentResponse struct {
	IntentID string
	Amount   decimal.Decimal
	Currency string
}

type gatewayClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	keyID      string
	keySecret  string
}

func NewGatewayClient(gatewayCfg *config.Gateway) GatewayClient {
	return &gatewayClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: gatewayCfg.BaseApiURL,
		keyID:      gatewayCfg.KeyID,
		keySecret:  gatewayCfg.KeySecret,
	}
}

type gatewayOrderResult struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateIntent posts a gateway order sized in the smallest currency unit
// (paise) and returns the gateway-assigned intent id.
func (c *gatewayClientImpl) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*CreateIntentResponse, error) {
	payload := map[string]interface{}{
		"amount":   toMinorUnits(amount),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/orders",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(b))
	}

	var result gatewayOrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("gateway response missing order id")
	}

	return &CreateIntentResponse{
		IntentID: result.ID,
		Amount:   fromMinorUnits(result.Amount),
		Currency: result.Currency,
	}, nil
}

// VerifyConfirmation recomputes HMAC-SHA256(secret, intentID|paymentRef) and
// compares it against the supplied signature in constant time. Amounts and
// status from the confirmation are never trusted, only this check is.
func (c *gatewayClientImpl) VerifyConfirmation(intentID, paymentRef, suppliedSignature string) error {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(intentID + "|" + paymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(suppliedSignature)) {
		return fmt.Errorf("signature mismatch for intent %s", intentID)
	}
	return nil
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}
