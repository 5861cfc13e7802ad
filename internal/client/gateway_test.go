package client

import (
	"context"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/model"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/braintree-go/braintree-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(method model.PaymentMethod) *GatewayRequest {
	return &GatewayRequest{
		OrderID:        7,
		TrackingCode:   "ABCDEF1234",
		TransactionRef: "PAY-7-0123456789ab",
		Amount:         decimal.RequireFromString("21.5"),
		Method:         method,
		Phone:          "0240000000",
		Provider:       "mtn",
		CallbackURL:    "http://localhost:8080/payments/verify?ref=PAY-7-0123456789ab&order_id=7",
	}
}

func TestMockGateway_LinksBackToVerification(t *testing.T) {
	init, err := NewMockGateway().Initiate(context.Background(), testRequest(model.MethodCard))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/payments/verify?ref=PAY-7-0123456789ab&order_id=7&outcome=successful", init.RedirectURL)
	assert.NotEmpty(t, init.Reference)
}

func TestGatewayRouter_FallsBackToMock(t *testing.T) {
	cfg := &config.Config{}
	router := NewGatewayRouter(cfg, zerolog.Nop())

	for _, m := range []model.PaymentMethod{model.MethodCard, model.MethodOnline, model.MethodMobileMoney, model.MethodBankRedirect} {
		assert.Equal(t, "mock", router.For(m).Name(), m)
	}

	cfg.Flutterwave.SecretKey = "FLWSECK_TEST"
	router = NewGatewayRouter(cfg, zerolog.Nop())
	assert.Equal(t, "flutterwave", router.For(model.MethodMobileMoney).Name())
	assert.Equal(t, "flutterwave", router.For(model.MethodBankRedirect).Name())
	assert.Equal(t, "mock", router.For(model.MethodOnline).Name())
}

func TestFlutterwaveClient_Initiate(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/payments", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.flutterwave.com/v3/hosted/pay/abc"}}`))
	}))
	defer srv.Close()

	gw := NewFlutterwaveClient(&config.Flutterwave{BaseApiURL: srv.URL, SecretKey: "secret", Currency: "GHS"})
	init, err := gw.Initiate(context.Background(), testRequest(model.MethodMobileMoney))
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.flutterwave.com/v3/hosted/pay/abc", init.RedirectURL)
	assert.Equal(t, "PAY-7-0123456789ab", init.Reference)
	assert.Equal(t, "PAY-7-0123456789ab", got["tx_ref"])
	assert.Equal(t, "21.50", got["amount"])
	assert.Equal(t, "GHS", got["currency"])
	assert.Equal(t, "mobilemoneyghana", got["payment_options"])
}

func TestFlutterwaveClient_InitiateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Invalid currency"}`))
	}))
	defer srv.Close()

	gw := NewFlutterwaveClient(&config.Flutterwave{BaseApiURL: srv.URL, SecretKey: "secret", Currency: "XXX"})
	_, err := gw.Initiate(context.Background(), testRequest(model.MethodBankRedirect))
	assert.ErrorContains(t, err, "flutterwave error 400")
}

func TestPaypalClient_Initiate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"access_token":"token-1"}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "PAY-7-0123456789ab", r.Header.Get("PayPal-Request-Id"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"5O190127TN364715T","status":"CREATED","links":[
			{"rel":"self","href":"https://api.sandbox.paypal.com/v2/checkout/orders/5O190127TN364715T"},
			{"rel":"approve","href":"https://www.sandbox.paypal.com/checkoutnow?token=5O190127TN364715T"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	gw := NewPaypalClient(&config.Paypal{BaseApiURL: srv.URL, ClientID: "client", ClientSecret: "secret", Currency: "USD"})
	init, err := gw.Initiate(context.Background(), testRequest(model.MethodOnline))
	require.NoError(t, err)

	assert.Equal(t, "5O190127TN364715T", init.Reference)
	assert.Equal(t, "https://www.sandbox.paypal.com/checkoutnow?token=5O190127TN364715T", init.RedirectURL)
}

func TestPaypalClient_TokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	gw := NewPaypalClient(&config.Paypal{BaseApiURL: srv.URL, ClientID: "client", ClientSecret: "bad"})
	_, err := gw.Initiate(context.Background(), testRequest(model.MethodOnline))
	assert.ErrorContains(t, err, "paypal token error 401")
}

func TestToBraintreeDecimal(t *testing.T) {
	d := toBraintreeDecimal(decimal.RequireFromString("21.5"))
	assert.Equal(t, int64(2150), d.Unscaled)
	assert.Equal(t, 2, d.Scale)
}

func confirmRequest(outcome, transactionID string) *ConfirmRequest {
	return &ConfirmRequest{
		TransactionRef: "PAY-7-0123456789ab",
		GatewayRef:     "5O190127TN364715T",
		Amount:         decimal.RequireFromString("21.5"),
		Outcome:        outcome,
		TransactionID:  transactionID,
	}
}

func unreachable(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected gateway call %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGatewayRouter_Named(t *testing.T) {
	cfg := &config.Config{}
	cfg.Flutterwave.SecretKey = "FLWSECK_TEST"
	router := NewGatewayRouter(cfg, zerolog.Nop())

	gw, ok := router.Named("flutterwave")
	require.True(t, ok)
	assert.Equal(t, "flutterwave", gw.Name())

	gw, ok = router.Named("mock")
	require.True(t, ok)
	assert.Equal(t, "mock", gw.Name())

	_, ok = router.Named("paypal")
	assert.False(t, ok)
}

func TestMockGateway_ConfirmEchoesCallback(t *testing.T) {
	confirmed, err := NewMockGateway().Confirm(context.Background(), confirmRequest("cancelled", "T-1"))
	require.NoError(t, err)
	assert.Equal(t, "cancelled", confirmed.Outcome)
	assert.Equal(t, "T-1", confirmed.TransactionID)
}

func TestFlutterwaveClient_RedirectURLKeepsCallbackKeys(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"status":"success","data":{"link":"https://checkout.flutterwave.com/v3/hosted/pay/abc"}}`))
	}))
	defer srv.Close()

	gw := NewFlutterwaveClient(&config.Flutterwave{
		BaseApiURL:  srv.URL,
		SecretKey:   "secret",
		Currency:    "GHS",
		RedirectURL: "https://dinedash.example/payments/verify?src=flw",
	})
	_, err := gw.Initiate(context.Background(), testRequest(model.MethodMobileMoney))
	require.NoError(t, err)

	redirect, err := url.Parse(got["redirect_url"].(string))
	require.NoError(t, err)
	assert.Equal(t, "dinedash.example", redirect.Host)
	assert.Equal(t, "PAY-7-0123456789ab", redirect.Query().Get("ref"))
	assert.Equal(t, "7", redirect.Query().Get("order_id"))
	assert.Equal(t, "flw", redirect.Query().Get("src"))
}

func TestFlutterwaveClient_Confirm(t *testing.T) {
	verified := func(txRef, status, amount, currency string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"status":"success","message":"Transaction fetched successfully","data":{
				"id":288200108,"tx_ref":"` + txRef + `","status":"` + status + `","amount":` + amount + `,"currency":"` + currency + `"}}`))
		}
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		outcome string
		wantErr string
	}{
		{name: "successful", handler: verified("PAY-7-0123456789ab", "successful", "21.5", "GHS"), outcome: "successful"},
		{name: "failed at flutterwave", handler: verified("PAY-7-0123456789ab", "failed", "21.5", "GHS"), outcome: "failed"},
		{name: "short amount", handler: verified("PAY-7-0123456789ab", "successful", "20", "GHS"), outcome: "underpaid"},
		{name: "wrong currency", handler: verified("PAY-7-0123456789ab", "successful", "21.5", "NGN"), outcome: "underpaid"},
		{name: "another payment", handler: verified("PAY-9-ffffffffffff", "successful", "21.5", "GHS"), wantErr: "belongs to PAY-9-ffffffffffff"},
		{name: "still pending", handler: verified("PAY-7-0123456789ab", "pending", "21.5", "GHS"), wantErr: "still pending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/v3/transactions/288200108/verify", tt.handler)
			srv := httptest.NewServer(mux)
			defer srv.Close()

			gw := NewFlutterwaveClient(&config.Flutterwave{BaseApiURL: srv.URL, SecretKey: "secret", Currency: "GHS"})
			confirmed, err := gw.Confirm(context.Background(), confirmRequest("successful", "288200108"))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, confirmed.Outcome)
			assert.Equal(t, "288200108", confirmed.TransactionID)
		})
	}
}

func TestFlutterwaveClient_ConfirmByReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/transactions/verify_by_reference", r.URL.Path)
		assert.Equal(t, "PAY-7-0123456789ab", r.URL.Query().Get("tx_ref"))
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":42,"tx_ref":"PAY-7-0123456789ab","status":"successful","amount":21.5,"currency":"GHS"}}`))
	}))
	defer srv.Close()

	gw := NewFlutterwaveClient(&config.Flutterwave{BaseApiURL: srv.URL, SecretKey: "secret", Currency: "GHS"})
	confirmed, err := gw.Confirm(context.Background(), confirmRequest("successful", ""))
	require.NoError(t, err)
	assert.Equal(t, "successful", confirmed.Outcome)
	assert.Equal(t, "42", confirmed.TransactionID)
}

func TestFlutterwaveClient_CancelledWithoutTransactionSkipsLookup(t *testing.T) {
	gw := NewFlutterwaveClient(&config.Flutterwave{BaseApiURL: unreachable(t).URL, SecretKey: "secret", Currency: "GHS"})
	confirmed, err := gw.Confirm(context.Background(), confirmRequest("cancelled", ""))
	require.NoError(t, err)
	assert.Equal(t, "cancelled", confirmed.Outcome)
}

func paypalCaptureServer(t *testing.T, status int, body string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"token-1"}`))
	})
	mux.HandleFunc("/v2/checkout/orders/5O190127TN364715T/capture", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "PAY-7-0123456789ab-capture", r.Header.Get("PayPal-Request-Id"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPaypalClient_ConfirmCaptures(t *testing.T) {
	srv := paypalCaptureServer(t, http.StatusCreated, `{"id":"5O190127TN364715T","status":"COMPLETED",
		"purchase_units":[{"payments":{"captures":[{"id":"3C679366HH908993F","status":"COMPLETED"}]}}]}`)

	gw := NewPaypalClient(&config.Paypal{BaseApiURL: srv.URL, ClientID: "client", ClientSecret: "secret", Currency: "USD"})
	confirmed, err := gw.Confirm(context.Background(), confirmRequest("successful", ""))
	require.NoError(t, err)
	assert.Equal(t, "successful", confirmed.Outcome)
	assert.Equal(t, "3C679366HH908993F", confirmed.TransactionID)
}

func TestPaypalClient_ConfirmDeclined(t *testing.T) {
	srv := paypalCaptureServer(t, http.StatusUnprocessableEntity,
		`{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"INSTRUMENT_DECLINED"}]}`)

	gw := NewPaypalClient(&config.Paypal{BaseApiURL: srv.URL, ClientID: "client", ClientSecret: "secret", Currency: "USD"})
	confirmed, err := gw.Confirm(context.Background(), confirmRequest("successful", ""))
	require.NoError(t, err)
	assert.Equal(t, "declined", confirmed.Outcome)
}

func TestPaypalClient_ConfirmAlreadyCapturedIsAnError(t *testing.T) {
	srv := paypalCaptureServer(t, http.StatusUnprocessableEntity,
		`{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"ORDER_ALREADY_CAPTURED"}]}`)

	gw := NewPaypalClient(&config.Paypal{BaseApiURL: srv.URL, ClientID: "client", ClientSecret: "secret", Currency: "USD"})
	_, err := gw.Confirm(context.Background(), confirmRequest("successful", ""))
	assert.ErrorContains(t, err, "already captured")
}

func TestPaypalClient_CancelSkipsCapture(t *testing.T) {
	gw := NewPaypalClient(&config.Paypal{BaseApiURL: unreachable(t).URL, ClientID: "client", ClientSecret: "secret"})
	confirmed, err := gw.Confirm(context.Background(), confirmRequest("cancelled", ""))
	require.NoError(t, err)
	assert.Equal(t, "cancelled", confirmed.Outcome)
}

func TestSaleOutcome(t *testing.T) {
	assert.Equal(t, "successful", saleOutcome(braintree.TransactionStatusSubmittedForSettlement))
	assert.Equal(t, "successful", saleOutcome(braintree.TransactionStatusSettled))
	assert.Equal(t, "declined", saleOutcome(braintree.TransactionStatusProcessorDeclined))
	assert.Equal(t, "declined", saleOutcome(braintree.TransactionStatusGatewayRejected))
}
