package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ctrl-shift-projects/b402-facilitator-go/config"
	"github.com/ctrl-shift-projects/b402-facilitator-go/core"
	"github.com/ctrl-shift-projects/b402-facilitator-go/events"
	"github.com/ctrl-shift-projects/b402-facilitator-go/metrics"
	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

const (
	testRelayerContract = "0x1000000000000000000000000000000000000402"
	testNonce           = "0x0202020202020202020202020202020202020202020202020202020202020202"
	// Testnet USDT: resolved from the static table, so token metadata lookups
	// never hit the mock client.
	testToken = "0x337610d27c682E347C9cD60BD4b3b107C9d34dDd"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockEthClient implements core.EthClient with overridable function fields.
type mockEthClient struct {
	callContract       func(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	pendingNonceAt     func(ctx context.Context, account common.Address) (uint64, error)
	suggestGasPrice    func(ctx context.Context) (*big.Int, error)
	sendTransaction    func(ctx context.Context, tx *ethtypes.Transaction) error
	transactionReceipt func(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)

	callContractCalls atomic.Int64
}

func (m *mockEthClient) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (m *mockEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.callContractCalls.Add(1)
	if m.callContract != nil {
		return m.callContract(ctx, msg, blockNumber)
	}
	// Default: nonce unused.
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

// newTestConfig builds a testnet configuration through the environment, the
// same path production takes.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	t.Setenv("NETWORK", "testnet")
	t.Setenv("RELAYER_PRIVATE_KEY", hex.EncodeToString(crypto.FromECDSA(key)))
	t.Setenv("B402_RELAYER_ADDRESS", testRelayerContract)
	t.Setenv("STATIC_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("SETTLE_GAS_LIMIT", "")
	t.Setenv("RPC_TIMEOUT_SECONDS", "")
	t.Setenv("SETTLE_TIMEOUT_SECONDS", "")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

func newTestRouter(t *testing.T, client core.EthClient) *gin.Engine {
	t.Helper()
	return NewServer(newTestConfig(t), client, nil, metrics.New(), nil).Router()
}

func newTestRouterWithSink(t *testing.T, client core.EthClient, sink *events.Sink) *gin.Engine {
	t.Helper()
	return NewServer(newTestConfig(t), client, sink, metrics.New(), nil).Router()
}

// signAuthorization signs the authorization with the payer key under the B402
// testnet domain.
func signAuthorization(t *testing.T, key *ecdsa.PrivateKey, auth *types.Authorization) string {
	t.Helper()

	value, ok := new(big.Int).SetString(auth.Value, 10)
	require.True(t, ok)
	nonce, reason := core.ParseNonce(auth.Nonce)
	require.Empty(t, reason)

	chainID := math.HexOrDecimal256(*big.NewInt(config.ChainIDTestnet))
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
			Name:              core.DomainName,
			Version:           core.DomainVersion,
			ChainId:           &chainID,
			VerifyingContract: testRelayerContract,
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
	require.NoError(t, err)
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	require.NoError(t, err)

	rawData := append(append([]byte("\x19\x01"), domainSeparator...), messageHash...)
	sig, err := crypto.Sign(crypto.Keccak256(rawData), key)
	require.NoError(t, err)
	sig[64] += 27

	return "0x" + hex.EncodeToString(sig)
}

// signedRequest builds a complete, freshly signed request body with a
// currently valid window.
func signedRequest(t *testing.T) *types.RequestBody {
	t.Helper()
	return signedWindowRequest(t, -60, 3600)
}

// signedWindowRequest builds a signed request whose validity window is offset
// from now by the given deltas.
func signedWindowRequest(t *testing.T, afterDelta, beforeDelta int64) *types.RequestBody {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	now := time.Now().Unix()
	auth := &types.Authorization{
		From:        crypto.PubkeyToAddress(key.PublicKey).Hex(),
		To:          "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
		Value:       "5000000",
		ValidAfter:  now + afterDelta,
		ValidBefore: now + beforeDelta,
		Nonce:       testNonce,
	}

	return &types.RequestBody{
		PaymentPayload: &types.PaymentPayload{
			Token: testToken,
			Payload: types.Payload{
				Signature:     signAuthorization(t, key, auth),
				Authorization: auth,
			},
		},
		PaymentRequirements: &types.PaymentRequirements{
			Network:         types.NetworkBSCTestnet,
			RelayerContract: testRelayerContract,
		},
	}
}

// postJSON issues a request against the router and returns the recorder.
func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeVerify(t *testing.T, w *httptest.ResponseRecorder) types.VerifyResponse {
	t.Helper()
	var resp types.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeSettle(t *testing.T, w *httptest.ResponseRecorder) types.SettleResponse {
	t.Helper()
	var resp types.SettleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
