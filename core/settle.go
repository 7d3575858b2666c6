package core

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

// relayerJSON is the relay entry point of the B402Relayer contract.
const relayerJSON = `[{
	"type": "function",
	"name": "transferWithAuthorization",
	"inputs": [
		{"name": "token", "type": "address"},
		{"name": "from", "type": "address"},
		{"name": "to", "type": "address"},
		{"name": "value", "type": "uint256"},
		{"name": "validAfter", "type": "uint256"},
		{"name": "validBefore", "type": "uint256"},
		{"name": "nonce", "type": "bytes32"},
		{"name": "v", "type": "uint8"},
		{"name": "r", "type": "bytes32"},
		{"name": "s", "type": "bytes32"}
	],
	"outputs": [],
	"constant": false
}]`

// receiptPollInterval is how often the executor polls for transaction
// inclusion while waiting for one confirmation.
const receiptPollInterval = 500 * time.Millisecond

// SettleParams are the startup-bound inputs of settlement.
type SettleParams struct {
	ChainID         int64
	RelayerContract common.Address
	PrivateKey      *ecdsa.PrivateKey
	GasLimit        uint64
}

// SettleOutcome reports a confirmed relay transaction.
type SettleOutcome struct {
	Transaction string
	BlockNumber uint64
	GasUsed     uint64
	GasPrice    *big.Int
	Duration    time.Duration
}

// Settle submits the authorized transfer through the relayer contract and
// waits for one confirmation. It submits at most one transaction per call and
// never retries; the contract's nonce ledger arbitrates concurrent attempts.
//
// A non-empty ErrorReason with a nil error is a terminal payload or contract
// rejection. A non-nil error is an execution failure (RPC outage, timeout)
// whose detail belongs in logs, not responses.
func Settle(ctx context.Context, client EthClient, p SettleParams, payload *types.PaymentPayload) (SettleOutcome, types.ErrorReason, error) {
	auth := payload.Payload.Authorization

	value := new(big.Int)
	if _, ok := value.SetString(auth.Value, 10); !ok || value.Sign() < 0 {
		return SettleOutcome{}, types.ErrorReasonInvalidValue, nil
	}

	nonce, invalid := ParseNonce(auth.Nonce)
	if invalid != "" {
		return SettleOutcome{}, types.ErrorReasonInvalidNonce, nil
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(payload.Payload.Signature, "0x"))
	if err != nil || len(sig) != 65 {
		return SettleOutcome{}, types.ErrorReasonInvalidSignature, nil
	}

	var sigR, sigS [32]byte
	copy(sigR[:], sig[0:32])
	copy(sigS[:], sig[32:64])
	sigV := sig[64]
	// Normalize V from recovery id (0/1) to the on-chain convention (27/28).
	if sigV == 0 || sigV == 1 {
		sigV += 27
	}

	relayerABI, err := abi.JSON(strings.NewReader(relayerJSON))
	if err != nil {
		return SettleOutcome{}, "", fmt.Errorf("failed to parse relayer ABI: %v", err)
	}

	txData, err := relayerABI.Pack(
		"transferWithAuthorization",
		common.HexToAddress(payload.Token),
		common.HexToAddress(auth.From),
		common.HexToAddress(auth.To),
		value,
		big.NewInt(auth.ValidAfter),
		big.NewInt(auth.ValidBefore),
		nonce,
		sigV,
		sigR,
		sigS,
	)
	if err != nil {
		return SettleOutcome{}, "", fmt.Errorf("failed to pack relay call: %v", err)
	}

	facilitator := crypto.PubkeyToAddress(p.PrivateKey.PublicKey)

	txNonce, err := client.PendingNonceAt(ctx, facilitator)
	if err != nil {
		return SettleOutcome{}, "", fmt.Errorf("failed to get pending nonce: %v", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return SettleOutcome{}, "", fmt.Errorf("failed to suggest gas price: %v", err)
	}

	// A fixed ceiling sized for a single transferFrom-shaped call. BSC still
	// prices legacy transactions, so no EIP-1559 fee fields here.
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    txNonce,
		To:       &p.RelayerContract,
		Value:    big.NewInt(0),
		Gas:      p.GasLimit,
		GasPrice: gasPrice,
		Data:     txData,
	})

	signer := ethtypes.NewEIP155Signer(big.NewInt(p.ChainID))
	signedTx, err := ethtypes.SignTx(tx, signer, p.PrivateKey)
	if err != nil {
		return SettleOutcome{}, "", fmt.Errorf("failed to sign transaction: %v", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return SettleOutcome{}, "", fmt.Errorf("failed to send transaction: %v", err)
	}

	start := time.Now()
	receipt, err := waitForReceipt(ctx, client, signedTx.Hash())
	if err != nil {
		return SettleOutcome{}, "", fmt.Errorf("failed awaiting confirmation of %s: %v", signedTx.Hash().Hex(), err)
	}

	outcome := SettleOutcome{
		Transaction: signedTx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		GasPrice:    receipt.EffectiveGasPrice,
		Duration:    time.Since(start),
	}
	if outcome.GasPrice == nil {
		outcome.GasPrice = gasPrice
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return outcome, types.ErrorReasonTransactionRevert, nil
	}
	return outcome, "", nil
}

// waitForReceipt polls until the transaction is included or ctx expires.
func waitForReceipt(ctx context.Context, client EthClient, txHash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
