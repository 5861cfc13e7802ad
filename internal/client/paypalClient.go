package client

import (
	"bytes"
	"context"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/model"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	currency           string
}

type PaypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type PaypalCreateOrderResult struct {
	ID     string       `json:"id"`
	Links  []PaypalLink `json:"links"`
	Status string       `json:"status"`
}

type PaypalCaptureResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type paypalErrorResult struct {
	Name    string `json:"name"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

func NewPaypalClient(paypalCfg *config.Paypal) PaymentGateway {
	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:         paypalCfg.BaseApiURL,
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
		currency:           paypalCfg.Currency,
	}
}

func (c *paypalClientImpl) Name() string { return "paypal" }

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token error %d", resp.StatusCode)
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	return res.AccessToken, nil
}

// Initiate creates a PayPal order and returns its approval link. PayPal sends
// the buyer back to the callback with the outcome after approval or cancel.
func (c *paypalClientImpl) Initiate(ctx context.Context, gr *GatewayRequest) (*GatewayInitiation, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get paypal access token: %w", err)
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": gr.TransactionRef,
				"custom_id":    gr.TrackingCode,
				"amount": map[string]string{
					"currency_code": c.currency,
					"value":         gr.Amount.StringFixed(2),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": gr.CallbackURL + "&outcome=successful",
			"cancel_url": gr.CallbackURL + "&outcome=cancelled",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v2/checkout/orders",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PayPal-Request-Id", gr.TransactionRef)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal create order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paypal error %d: %s", resp.StatusCode, string(b))
	}

	var result PaypalCreateOrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode paypal response: %w", err)
	}

	approveURL := _extractApproveURL(result.Links)
	if approveURL == "" {
		return nil, fmt.Errorf("paypal order %s has no approve link", result.ID)
	}

	return &GatewayInitiation{
		Reference:   result.ID,
		RedirectURL: approveURL,
	}, nil
}

func _extractApproveURL(links []PaypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}

// Confirm captures an approved PayPal order. A payment only completes once the
// capture itself completed; reaching return_url is not enough.
func (c *paypalClientImpl) Confirm(ctx context.Context, cr *ConfirmRequest) (*Confirmation, error) {
	if cr.Outcome != model.OutcomeSuccessful {
		return passthrough(cr), nil
	}
	if cr.GatewayRef == "" {
		return nil, fmt.Errorf("paypal order id is unknown for %s", cr.TransactionRef)
	}

	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get paypal access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseApiURL, cr.GatewayRef),
		nil)
	if err != nil {
		return nil, fmt.Errorf("create capture request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	// same request id on every attempt, so a repeated capture replays PayPal's first answer
	req.Header.Set("PayPal-Request-Id", cr.TransactionRef+"-capture")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal capture request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		var perr paypalErrorResult
		if err := json.NewDecoder(resp.Body).Decode(&perr); err != nil {
			return nil, fmt.Errorf("decode paypal capture error: %w", err)
		}
		for _, d := range perr.Details {
			if d.Issue == "ORDER_ALREADY_CAPTURED" {
				return nil, fmt.Errorf("paypal order %s already captured", cr.GatewayRef)
			}
		}
		return &Confirmation{Outcome: "declined", TransactionID: cr.GatewayRef}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paypal capture error %d: %s", resp.StatusCode, string(b))
	}

	var result PaypalCaptureResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode paypal capture response: %w", err)
	}

	captureID, captureStatus := result.ID, result.Status
	if len(result.PurchaseUnits) > 0 && len(result.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := result.PurchaseUnits[0].Payments.Captures[0]
		captureID, captureStatus = capture.ID, capture.Status
	}

	switch captureStatus {
	case "COMPLETED":
		return &Confirmation{Outcome: model.OutcomeSuccessful, TransactionID: captureID}, nil
	case "DECLINED", "FAILED":
		return &Confirmation{Outcome: "declined", TransactionID: captureID}, nil
	default:
		return nil, fmt.Errorf("paypal capture %s is %s", captureID, captureStatus)
	}
}
