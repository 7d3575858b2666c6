package core

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// mockEthClient implements EthClient with overridable function fields. Nil
// fields return benign defaults so tests only stub what they exercise.
type mockEthClient struct {
	balanceAt          func(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	callContract       func(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	pendingNonceAt     func(ctx context.Context, account common.Address) (uint64, error)
	suggestGasPrice    func(ctx context.Context) (*big.Int, error)
	sendTransaction    func(ctx context.Context, tx *ethtypes.Transaction) error
	transactionReceipt func(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)

	callContractCalls atomic.Int64
}

func (m *mockEthClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if m.balanceAt != nil {
		return m.balanceAt(ctx, account, blockNumber)
	}
	return big.NewInt(0), nil
}

func (m *mockEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.callContractCalls.Add(1)
	if m.callContract != nil {
		return m.callContract(ctx, msg, blockNumber)
	}
	return make([]byte, 32), nil
}

func (m *mockEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if m.pendingNonceAt != nil {
		return m.pendingNonceAt(ctx, account)
	}
	return 0, nil
}

func (m *mockEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.suggestGasPrice != nil {
		return m.suggestGasPrice(ctx)
	}
	return big.NewInt(3_000_000_000), nil
}

func (m *mockEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	if m.sendTransaction != nil {
		return m.sendTransaction(ctx, tx)
	}
	return nil
}

func (m *mockEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	if m.transactionReceipt != nil {
		return m.transactionReceipt(ctx, txHash)
	}
	return nil, ethereum.NotFound
}
