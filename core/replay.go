package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

// authorizationStateJSON is the read-only accessor of the relayer's replay
// ledger.
const authorizationStateJSON = `[{
	"type": "function",
	"name": "authorizationState",
	"inputs": [
		{"name": "authorizer", "type": "address"},
		{"name": "nonce", "type": "bytes32"}
	],
	"outputs": [
		{"name": "", "type": "bool"}
	],
	"constant": true
}]`

// NonceUsed reports whether the relayer contract has already consumed the
// (authorizer, nonce) pair. The facilitator keeps no replay state of its own;
// the on-chain ledger is authoritative. Callers must only pass an authorizer
// address that a verified signature vouches for.
func NonceUsed(ctx context.Context, client EthClient, relayerContract common.Address, authorizer common.Address, nonce string) (bool, error) {
	nonceBytes, reason := ParseNonce(nonce)
	if reason != "" {
		return false, fmt.Errorf("invalid nonce %q", nonce)
	}

	stateABI, err := abi.JSON(strings.NewReader(authorizationStateJSON))
	if err != nil {
		return false, fmt.Errorf("failed to parse authorizationState ABI: %v", err)
	}

	data, err := stateABI.Pack("authorizationState", authorizer, nonceBytes)
	if err != nil {
		return false, fmt.Errorf("failed to pack authorizationState call: %v", err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &relayerContract,
		Data: data,
	}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to read authorization state: %v", err)
	}
	if len(result) != 32 {
		return false, fmt.Errorf("unexpected authorizationState result length %d", len(result))
	}

	return result[31] != 0, nil
}

// CheckReplay wraps NonceUsed into a verify-flow outcome: a consumed nonce is
// a terminal validation failure, not a transient error.
func CheckReplay(ctx context.Context, client EthClient, relayerContract common.Address, authorizer common.Address, nonce string) (types.InvalidReason, error) {
	used, err := NonceUsed(ctx, client, relayerContract, authorizer, nonce)
	if err != nil {
		return "", err
	}
	if used {
		return types.InvalidReasonNonceAlreadyUsed, nil
	}
	return "", nil
}
