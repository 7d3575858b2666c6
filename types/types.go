package types

// RequestBody is the request body shared by the verify and settle endpoints.
type RequestBody struct {
	PaymentPayload      *PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *PaymentRequirements `json:"paymentRequirements"`
}

// PaymentPayload is the payment payload.
type PaymentPayload struct {
	Token   string  `json:"token"`
	Payload Payload `json:"payload"`
}

// Payload is the signed portion of the payment payload.
type Payload struct {
	Signature     string         `json:"signature"`
	Authorization *Authorization `json:"authorization"`
}

// Authorization is the transfer authorization signed by the payer.
// Value is the transfer amount in the token's smallest unit, ValidAfter and
// ValidBefore bound the validity window as unix seconds (half-open interval,
// validAfter inclusive), and Nonce is a payer-chosen random 32 byte hex value.
type Authorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  int64  `json:"validAfter"`
	ValidBefore int64  `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// PaymentRequirements is the caller supplied settlement context.
type PaymentRequirements struct {
	Network         Network `json:"network"`
	RelayerContract string  `json:"relayerContract"`
}

// VerifyResponse is the response of the verify operation.
type VerifyResponse struct {
	IsValid       bool          `json:"isValid"`
	Payer         string        `json:"payer,omitempty"`
	InvalidReason InvalidReason `json:"invalidReason,omitempty"`
}

// SettleResponse is the response of the settle operation.
type SettleResponse struct {
	Success     bool        `json:"success"`
	Transaction string      `json:"transaction,omitempty"`
	Network     Network     `json:"network,omitempty"`
	Payer       string      `json:"payer,omitempty"`
	BlockNumber uint64      `json:"blockNumber,omitempty"`
	ErrorReason ErrorReason `json:"errorReason,omitempty"`
}

// TokenInfo is the ERC20 metadata for a token address.
type TokenInfo struct {
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// AssetInfo is the per-asset entry returned by the list endpoint.
type AssetInfo struct {
	Asset    string  `json:"asset"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Decimals uint8   `json:"decimals"`
	Network  Network `json:"network"`
}

// HealthResponse is the response of the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Network string `json:"network"`
	Relayer string `json:"relayer"`
}
