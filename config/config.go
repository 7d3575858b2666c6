package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Default public RPC endpoints for BNB Smart Chain.
const (
	DefaultMainnetRPC = "https://bsc-dataseed.bnbchain.org"
	DefaultTestnetRPC = "https://data-seed-prebsc-1-s1.binance.org:8545"
)

const (
	ChainIDMainnet int64 = 56
	ChainIDTestnet int64 = 97
)

// Config holds the facilitator configuration, resolved once at startup.
// Request handlers receive it explicitly and never read the environment.
type Config struct {
	// Mainnet selects BSC mainnet (chain id 56) over testnet (chain id 97).
	Mainnet bool

	// ChainID of the selected network.
	ChainID int64

	// RPCURL of the selected network.
	RPCURL string

	// RelayerContract is the deployed B402Relayer address.
	RelayerContract common.Address

	// RelayerAddress is the facilitator's own account, derived from the
	// private key at startup.
	RelayerAddress common.Address

	// privateKey signs settlement transactions. Held in memory only,
	// unexported so it cannot leak through logging or serialization.
	privateKey *ecdsa.PrivateKey

	// SettleGasLimit caps the gas for a single relay call.
	SettleGasLimit uint64

	// RPCTimeout bounds individual chain reads.
	RPCTimeout time.Duration

	// SettleTimeout bounds transaction submission plus confirmation wait.
	SettleTimeout time.Duration

	// Port the HTTP server listens on.
	Port int

	// DatabaseURL enables the Postgres event sink and, when StaticAPIKey is
	// unset, database-backed API keys.
	DatabaseURL string

	// StaticAPIKey enables static API key authentication when set.
	StaticAPIKey string
}

// Network returns the network label for the configured chain.
func (c *Config) Network() string {
	if c.Mainnet {
		return "bsc"
	}
	return "bsc-testnet"
}

// PrivateKey returns the relayer signing key.
func (c *Config) PrivateKey() *ecdsa.PrivateKey {
	return c.privateKey
}

// FromEnv resolves the configuration from the environment. It fails fast on
// missing or malformed required values so misconfiguration is caught at boot
// instead of on the first settlement.
func FromEnv() (*Config, error) {
	cfg := &Config{
		SettleGasLimit: 200000,
		RPCTimeout:     15 * time.Second,
		SettleTimeout:  120 * time.Second,
		Port:           3402,
	}

	cfg.Mainnet = os.Getenv("NETWORK") == "mainnet"
	if cfg.Mainnet {
		cfg.ChainID = ChainIDMainnet
		cfg.RPCURL = envOr("BSC_RPC_URL", DefaultMainnetRPC)
	} else {
		cfg.ChainID = ChainIDTestnet
		cfg.RPCURL = envOr("BSC_TESTNET_RPC_URL", DefaultTestnetRPC)
	}

	key := os.Getenv("RELAYER_PRIVATE_KEY")
	if key == "" {
		return nil, fmt.Errorf("RELAYER_PRIVATE_KEY environment variable is not set")
	}
	parsed, err := crypto.HexToECDSA(strip0x(key))
	if err != nil {
		return nil, fmt.Errorf("invalid RELAYER_PRIVATE_KEY: %v", err)
	}
	cfg.privateKey = parsed
	cfg.RelayerAddress = crypto.PubkeyToAddress(parsed.PublicKey)

	relayer := os.Getenv("B402_RELAYER_ADDRESS")
	if relayer == "" {
		return nil, fmt.Errorf("B402_RELAYER_ADDRESS environment variable is not set")
	}
	if !common.IsHexAddress(relayer) {
		return nil, fmt.Errorf("invalid B402_RELAYER_ADDRESS: %s", relayer)
	}
	cfg.RelayerContract = common.HexToAddress(relayer)

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid PORT: %s", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("SETTLE_GAS_LIMIT"); v != "" {
		limit, err := strconv.ParseUint(v, 10, 64)
		if err != nil || limit == 0 {
			return nil, fmt.Errorf("invalid SETTLE_GAS_LIMIT: %s", v)
		}
		cfg.SettleGasLimit = limit
	}

	if v := os.Getenv("RPC_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid RPC_TIMEOUT_SECONDS: %s", v)
		}
		cfg.RPCTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("SETTLE_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid SETTLE_TIMEOUT_SECONDS: %s", v)
		}
		cfg.SettleTimeout = time.Duration(secs) * time.Second
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.StaticAPIKey = os.Getenv("STATIC_API_KEY")

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func strip0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
