package services

// GatewayCharge is the authoritative view of a transaction as reported by the
// payment gateway's verify endpoint.
type GatewayCharge struct {
	Reference     string
	Amount        int64 // minor units
	Status        string
	TransactionID string
	Channel       string
}

// Gateway is the outbound payment gateway contract. Implementations must
// bound every call with a timeout and surface ErrGatewayTimeout /
// ErrGatewayUnavailable so the workflow engine can record the right failure
// reason.
type Gateway interface {
	// Initialize reserves a charge for the reference and amount and returns
	// the URL the learner is redirected to.
	Initialize(reference string, amount int64, email string) (authorizationURL string, err error)

	// Verify fetches the authoritative charge state for a reference. This is
	// the second source of truth: a webhook alone never completes an order.
	Verify(reference string) (*GatewayCharge, error)
}

// GatewayStatusSuccess is the gateway's status value for a settled charge
const GatewayStatusSuccess = "success"
