package gateway

// auth_status values the gateway returns for a transaction.
const (
	AuthSuccess   = "0300"
	AuthPending   = "0002"
	AuthFailed    = "0399"
	AuthCancelled = "0398" // payer abandoned the payment screen
)

type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailed
	OutcomeCancelled
	OutcomeUnknown
)

// OutcomeFor maps an auth_status code to a settlement outcome. Codes we do
// not recognize are treated as pending (callers must log them) so a gateway
// rollout of new codes never flips a booking to a wrong terminal state.
func OutcomeFor(authStatus string) Outcome {
	switch authStatus {
	case AuthSuccess:
		return OutcomeSuccess
	case AuthFailed:
		return OutcomeFailed
	case AuthCancelled:
		return OutcomeCancelled
	case AuthPending:
		return OutcomePending
	default:
		return OutcomeUnknown
	}
}
