package core

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

const erc20JSON = `[
	{"type": "function", "name": "decimals", "inputs": [], "outputs": [{"name": "", "type": "uint8"}], "constant": true},
	{"type": "function", "name": "symbol", "inputs": [], "outputs": [{"name": "", "type": "string"}], "constant": true},
	{"type": "function", "name": "name", "inputs": [], "outputs": [{"name": "", "type": "string"}], "constant": true}
]`

var errInvalidToken = errors.New("invalid token address")

// FallbackTokenInfo is returned (and cached) for any token whose metadata
// cannot be read, so a misbehaving address costs at most one failed lookup.
var FallbackTokenInfo = types.TokenInfo{Decimals: 18, Symbol: "TOKEN", Name: "Unknown Token"}

// knownTokens are common deployments served without any chain access.
// Keys are lowercase addresses.
var knownTokens = map[string]types.TokenInfo{
	// BSC mainnet
	"0x55d398326f99059ff775485246999027b3197955": {Decimals: 18, Symbol: "USDT", Name: "Tether USD"},
	"0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d": {Decimals: 18, Symbol: "USDC", Name: "USD Coin"},
	"0x8d0d000ee44948fc98c9b98a4fa4921476f08b0d": {Decimals: 18, Symbol: "USD1", Name: "World Liberty Financial USD"},
	// BSC testnet
	"0x337610d27c682e347c9cd60bd4b3b107c9d34ddd": {Decimals: 6, Symbol: "USDT", Name: "Tether USD (Testnet)"},
}

// Supported asset addresses per network, original casing preserved for
// display.
var (
	MainnetAssets = []string{
		"0x55d398326f99059fF775485246999027B3197955", // USDT
		"0x8d0d000ee44948fc98c9b98a4fa4921476f08b0d", // USD1
		"0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", // USDC
	}
	TestnetAssets = []string{
		"0x337610d27c682E347C9cD60BD4b3b107C9d34dDd", // USDT
	}
)

// SupportedAssets returns the asset addresses advertised for the network.
func SupportedAssets(mainnet bool) []string {
	if mainnet {
		return MainnetAssets
	}
	return TestnetAssets
}

// TokenInfoResolver resolves ERC20 metadata with a static known-token table
// and a process-lifetime cache. It never returns an error: lookups degrade to
// FallbackTokenInfo. Concurrent first-time lookups for the same token may
// fetch twice; the results converge so no coordination is needed beyond the
// cache lock.
type TokenInfoResolver struct {
	client EthClient

	mu    sync.RWMutex
	cache map[string]types.TokenInfo
}

// NewTokenInfoResolver creates a resolver reading through the given client.
func NewTokenInfoResolver(client EthClient) *TokenInfoResolver {
	return &TokenInfoResolver{
		client: client,
		cache:  make(map[string]types.TokenInfo),
	}
}

// Resolve returns the metadata for a token address.
func (r *TokenInfoResolver) Resolve(ctx context.Context, tokenAddress string) types.TokenInfo {
	addr := strings.ToLower(tokenAddress)

	if info, ok := knownTokens[addr]; ok {
		return info
	}

	r.mu.RLock()
	info, ok := r.cache[addr]
	r.mu.RUnlock()
	if ok {
		return info
	}

	info, err := r.fetch(ctx, tokenAddress)
	if err != nil {
		info = FallbackTokenInfo
	}

	r.mu.Lock()
	r.cache[addr] = info
	r.mu.Unlock()
	return info
}

// fetch issues the three metadata reads concurrently.
func (r *TokenInfoResolver) fetch(ctx context.Context, tokenAddress string) (types.TokenInfo, error) {
	if !common.IsHexAddress(tokenAddress) {
		return types.TokenInfo{}, errInvalidToken
	}
	token := common.HexToAddress(tokenAddress)

	erc20ABI, err := abi.JSON(strings.NewReader(erc20JSON))
	if err != nil {
		return types.TokenInfo{}, err
	}

	var info types.TokenInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var decimals uint8
		if err := r.call(gctx, &erc20ABI, token, "decimals", &decimals); err != nil {
			return err
		}
		info.Decimals = decimals
		return nil
	})
	g.Go(func() error {
		var symbol string
		if err := r.call(gctx, &erc20ABI, token, "symbol", &symbol); err != nil {
			return err
		}
		info.Symbol = symbol
		return nil
	})
	g.Go(func() error {
		var name string
		if err := r.call(gctx, &erc20ABI, token, "name", &name); err != nil {
			return err
		}
		info.Name = name
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.TokenInfo{}, err
	}
	return info, nil
}

// call executes a no-argument read and unpacks the single output into out.
func (r *TokenInfoResolver) call(ctx context.Context, erc20ABI *abi.ABI, token common.Address, method string, out interface{}) error {
	data, err := erc20ABI.Pack(method)
	if err != nil {
		return err
	}
	result, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return err
	}
	return erc20ABI.UnpackIntoInterface(out, method, result)
}
