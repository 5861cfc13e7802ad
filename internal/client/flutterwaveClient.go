package client

import (
	"bytes"
	"context"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/model"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type flutterwaveClientImpl struct {
	httpClient  *http.Client
	baseApiURL  string
	secretKey   string
	currency    string
	redirectURL string
}

type FlutterwavePaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type FlutterwaveVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64           `json:"id"`
		TxRef    string          `json:"tx_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	} `json:"data"`
}

func NewFlutterwaveClient(cfg *config.Flutterwave) PaymentGateway {
	return &flutterwaveClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:  cfg.BaseApiURL,
		secretKey:   cfg.SecretKey,
		currency:    cfg.Currency,
		redirectURL: cfg.RedirectURL,
	}
}

func (c *flutterwaveClientImpl) Name() string { return "flutterwave" }

// Initiate opens a Flutterwave Standard checkout. Flutterwave redirects back
// with status, tx_ref and transaction_id appended to the redirect URL.
func (c *flutterwaveClientImpl) Initiate(ctx context.Context, gr *GatewayRequest) (*GatewayInitiation, error) {
	redirectURL, err := c.callbackURL(gr.CallbackURL)
	if err != nil {
		return nil, err
	}

	email := gr.CustomerEmail
	if email == "" {
		email = "guest@example.com"
	}
	name := gr.CustomerName
	if name == "" {
		name = "Customer " + gr.TrackingCode
	}

	payload := map[string]interface{}{
		"tx_ref":          gr.TransactionRef,
		"amount":          gr.Amount.StringFixed(2),
		"currency":        c.currency,
		"redirect_url":    redirectURL,
		"payment_options": flutterwavePaymentOption(gr.Method),
		"customer": map[string]string{
			"email":       email,
			"name":        name,
			"phonenumber": gr.Phone,
		},
		"meta": map[string]interface{}{
			"order_id": gr.OrderID,
			"provider": gr.Provider,
		},
		"customizations": map[string]string{
			"title":       "DineDash Payment",
			"description": "Payment for order " + gr.TrackingCode,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v3/payments", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flutterwave payment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("flutterwave error %d: %s", resp.StatusCode, string(b))
	}

	var result FlutterwavePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode flutterwave response: %w", err)
	}
	if result.Status != "success" || result.Data.Link == "" {
		return nil, fmt.Errorf("flutterwave initiation failed: %s", result.Message)
	}

	return &GatewayInitiation{
		Reference:   gr.TransactionRef,
		RedirectURL: result.Data.Link,
	}, nil
}

// callbackURL keeps ref and order_id on a configured redirect URL. Flutterwave
// only appends status, tx_ref and transaction_id.
func (c *flutterwaveClientImpl) callbackURL(callback string) (string, error) {
	if c.redirectURL == "" {
		return callback, nil
	}

	cb, err := url.Parse(callback)
	if err != nil {
		return "", fmt.Errorf("parse callback url: %w", err)
	}
	redirect, err := url.Parse(c.redirectURL)
	if err != nil {
		return "", fmt.Errorf("parse flutterwave redirect url: %w", err)
	}

	q := redirect.Query()
	for key, values := range cb.Query() {
		q[key] = values
	}
	redirect.RawQuery = q.Encode()
	return redirect.String(), nil
}

// Confirm fetches the transaction behind a callback from Flutterwave. Only a
// successful transaction for the full amount in our currency counts.
func (c *flutterwaveClientImpl) Confirm(ctx context.Context, cr *ConfirmRequest) (*Confirmation, error) {
	if cr.Outcome != model.OutcomeSuccessful && cr.TransactionID == "" {
		return passthrough(cr), nil
	}

	endpoint := c.baseApiURL + "/v3/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(cr.TransactionRef)
	if cr.TransactionID != "" {
		endpoint = c.baseApiURL + "/v3/transactions/" + url.PathEscape(cr.TransactionID) + "/verify"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flutterwave verify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("flutterwave verify error %d: %s", resp.StatusCode, string(b))
	}

	var result FlutterwaveVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode flutterwave verify response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("flutterwave verify failed: %s", result.Message)
	}

	data := result.Data
	if data.TxRef != cr.TransactionRef {
		return nil, fmt.Errorf("flutterwave transaction %d belongs to %s, not %s", data.ID, data.TxRef, cr.TransactionRef)
	}

	confirmed := &Confirmation{Outcome: data.Status, TransactionID: strconv.FormatInt(data.ID, 10)}
	switch {
	case data.Status == "pending":
		return nil, fmt.Errorf("flutterwave transaction %d is still pending", data.ID)
	case data.Status != model.OutcomeSuccessful:
	case data.Currency != c.currency || data.Amount.LessThan(cr.Amount):
		confirmed.Outcome = "underpaid"
	}
	return confirmed, nil
}

func flutterwavePaymentOption(method model.PaymentMethod) string {
	switch method {
	case model.MethodMobileMoney:
		return "mobilemoneyghana"
	case model.MethodBankRedirect:
		return "banktransfer"
	default:
		return "card"
	}
}
