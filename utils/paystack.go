package utils

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"time"

	"campus/config"
	"campus/services"

	"github.com/go-resty/resty/v2"
)

// PaystackClient talks to the Paystack REST API. It satisfies
// services.Gateway; every call is bounded by the configured timeout.
type PaystackClient struct {
	client *resty.Client
}

// Paystack is the process-wide gateway client, set up by InitPaystackClient
var Paystack *PaystackClient

// InitPaystackClient builds the shared client from AppConfig. Call after
// config.LoadConfig.
func InitPaystackClient() {
	Paystack = &PaystackClient{
		client: resty.New().
			SetBaseURL(config.AppConfig.PaystackBaseURL).
			SetAuthToken(config.AppConfig.PaystackSecretKey).
			SetTimeout(time.Duration(config.AppConfig.GatewayTimeoutSeconds) * time.Second),
	}
	log.Printf("[PAYSTACK] Gateway client initialized for %s", config.AppConfig.PaystackBaseURL)
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Channel   string `json:"channel"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// Initialize reserves a charge and returns the learner redirect URL
func (p *PaystackClient) Initialize(reference string, amount int64, email string) (string, error) {
	var result initializeResponse
	resp, err := p.client.R().
		SetBody(map[string]interface{}{
			"email":     email,
			"amount":    amount,
			"reference": reference,
			"currency":  config.AppConfig.Currency,
		}).
		SetResult(&result).
		Post("/transaction/initialize")
	if err != nil {
		return "", classifyTransportError(err)
	}
	if resp.StatusCode() != 200 || !result.Status {
		log.Printf("[PAYSTACK] Initialize failed for %s: %s", reference, resp.String())
		return "", services.ErrGatewayUnavailable
	}
	return result.Data.AuthorizationURL, nil
}

// Verify fetches the authoritative charge state for a reference
func (p *PaystackClient) Verify(reference string) (*services.GatewayCharge, error) {
	var result verifyResponse
	resp, err := p.client.R().
		SetResult(&result).
		Get("/transaction/verify/" + url.PathEscape(reference))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if resp.StatusCode() != 200 || !result.Status {
		log.Printf("[PAYSTACK] Verify failed for %s: %s", reference, resp.String())
		return nil, services.ErrGatewayUnavailable
	}

	return &services.GatewayCharge{
		Reference:     result.Data.Reference,
		Amount:        result.Data.Amount,
		Status:        result.Data.Status,
		TransactionID: fmt.Sprintf("%d", result.Data.ID),
		Channel:       result.Data.Channel,
	}, nil
}

// classifyTransportError maps network errors onto the engine's gateway error
// taxonomy
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", services.ErrGatewayTimeout, err)
	}
	return fmt.Errorf("%w: %v", services.ErrGatewayUnavailable, err)
}
