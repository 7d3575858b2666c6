package types

// Network is the network label enum.
type Network string

const (
	NetworkBSC        Network = "bsc"
	NetworkBSCTestnet Network = "bsc-testnet"
)

// InvalidReason is the reason an authorization failed verification.
type InvalidReason string

const (
	InvalidReasonMalformedJSON      InvalidReason = "Malformed JSON request body"
	InvalidReasonMissingPayload     InvalidReason = "Missing paymentPayload or paymentRequirements"
	InvalidReasonInvalidStructure   InvalidReason = "Invalid payload structure: missing authorization or signature"
	InvalidReasonMissingAuthFields  InvalidReason = "Invalid authorization: missing required fields (from, to, value, validAfter, validBefore, nonce)"
	InvalidReasonInvalidValue       InvalidReason = "Invalid authorization value"
	InvalidReasonInvalidNonce       InvalidReason = "Invalid authorization nonce"
	InvalidReasonInvalidFromAddress InvalidReason = "Invalid authorization from address"
	InvalidReasonInvalidToAddress   InvalidReason = "Invalid authorization to address"
	InvalidReasonInvalidRelayer     InvalidReason = "Invalid relayer contract address"
	InvalidReasonInvalidSignature   InvalidReason = "Invalid signature"
	InvalidReasonNonceAlreadyUsed   InvalidReason = "Nonce already used"
	InvalidReasonNotYetValid        InvalidReason = "Authorization not yet valid"
	InvalidReasonExpired            InvalidReason = "Authorization expired"
	InvalidReasonVerifyFailed       InvalidReason = "Verification failed"
)

// ErrorReason is the reason a settlement failed.
type ErrorReason string

const (
	ErrorReasonMalformedJSON     ErrorReason = "Malformed JSON request body"
	ErrorReasonMissingPayload    ErrorReason = "Missing paymentPayload or paymentRequirements"
	ErrorReasonInvalidStructure  ErrorReason = "Invalid payload structure: missing authorization or signature"
	ErrorReasonMissingAuthFields ErrorReason = "Invalid authorization: missing required fields (from, to, value, validAfter, validBefore, nonce)"
	ErrorReasonInvalidValue      ErrorReason = "Invalid authorization value"
	ErrorReasonInvalidNonce      ErrorReason = "Invalid authorization nonce"
	ErrorReasonInvalidSignature  ErrorReason = "Invalid signature format"
	ErrorReasonTransactionRevert ErrorReason = "Transaction reverted on-chain"
	ErrorReasonSettleFailed      ErrorReason = "Settlement failed"
)
