package core

import (
	"encoding/hex"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

// EIP-712 domain constants for the B402 protocol. The chain id and verifying
// contract complete the domain per deployment.
const (
	DomainName    = "B402"
	DomainVersion = "1"
)

// VerifyParams are the startup-bound inputs of signature verification. The
// chain id comes from the facilitator configuration, never from the client.
type VerifyParams struct {
	ChainID         int64
	RelayerContract string
}

// ValidateStructure checks that the request carries a complete payload and
// requirements. It performs no chain access and is the only gate before an
// HTTP 400. Returns an empty reason when the structure is sound.
func ValidateStructure(body *types.RequestBody) types.InvalidReason {
	if body == nil || body.PaymentPayload == nil || body.PaymentRequirements == nil {
		return types.InvalidReasonMissingPayload
	}
	payload := body.PaymentPayload.Payload
	if payload.Authorization == nil || payload.Signature == "" {
		return types.InvalidReasonInvalidStructure
	}
	auth := payload.Authorization
	if auth.From == "" || auth.To == "" || auth.Value == "" ||
		auth.ValidAfter == 0 || auth.ValidBefore == 0 || auth.Nonce == "" {
		return types.InvalidReasonMissingAuthFields
	}
	return ""
}

// RecoverSigner recovers the EIP-712 signer of the authorization and compares
// it, case-insensitively, against the claimed from address. It is pure apart
// from signature math and never touches the chain.
func RecoverSigner(p VerifyParams, auth *types.Authorization, signature string) (common.Address, types.InvalidReason) {
	if !common.IsHexAddress(auth.From) {
		return common.Address{}, types.InvalidReasonInvalidFromAddress
	}
	if !common.IsHexAddress(auth.To) {
		return common.Address{}, types.InvalidReasonInvalidToAddress
	}
	if !common.IsHexAddress(p.RelayerContract) {
		return common.Address{}, types.InvalidReasonInvalidRelayer
	}

	value := new(big.Int)
	if _, ok := value.SetString(auth.Value, 10); !ok || value.Sign() < 0 {
		return common.Address{}, types.InvalidReasonInvalidValue
	}

	nonce, reason := ParseNonce(auth.Nonce)
	if reason != "" {
		return common.Address{}, reason
	}

	chainID := math.HexOrDecimal256(*big.NewInt(p.ChainID))
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           &chainID,
			VerifyingContract: p.RelayerContract,
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From,
			"to":          auth.To,
			"value":       value,
			"validAfter":  big.NewInt(auth.ValidAfter),
			"validBefore": big.NewInt(auth.ValidBefore),
			"nonce":       nonce[:],
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Address{}, types.InvalidReasonInvalidSignature
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Address{}, types.InvalidReasonInvalidSignature
	}

	rawData := append(append([]byte("\x19\x01"), domainSeparator...), messageHash...)
	sighash := crypto.Keccak256(rawData)

	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != 65 {
		return common.Address{}, types.InvalidReasonInvalidSignature
	}

	// Normalize V from Ethereum convention (27/28) to recovery id (0/1).
	if sig[64] == 27 || sig[64] == 28 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pubkey, err := crypto.Ecrecover(sighash, sig)
	if err != nil {
		return common.Address{}, types.InvalidReasonInvalidSignature
	}
	recoveredPubkey, err := crypto.UnmarshalPubkey(pubkey)
	if err != nil {
		return common.Address{}, types.InvalidReasonInvalidSignature
	}

	signer := crypto.PubkeyToAddress(*recoveredPubkey)
	if signer != common.HexToAddress(auth.From) {
		return common.Address{}, types.InvalidReasonInvalidSignature
	}
	return signer, ""
}

// CheckWindow validates the authorization validity window at the given
// instant. The interval is half-open: now == validAfter is valid, while
// now == validBefore is already expired.
func CheckWindow(auth *types.Authorization, now time.Time) types.InvalidReason {
	unix := now.Unix()
	if unix < auth.ValidAfter {
		return types.InvalidReasonNotYetValid
	}
	if unix >= auth.ValidBefore {
		return types.InvalidReasonExpired
	}
	return ""
}

// ParseNonce decodes a hex nonce into the bytes32 form the contract and the
// typed data hashing expect.
func ParseNonce(nonce string) ([32]byte, types.InvalidReason) {
	var out [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(nonce, "0x"))
	if err != nil || len(decoded) != 32 {
		return out, types.InvalidReasonInvalidNonce
	}
	copy(out[:], decoded)
	return out, ""
}
