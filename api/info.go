package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctrl-shift-projects/b402-facilitator-go/core"
	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

// ListResponse advertises the supported networks and assets.
type ListResponse struct {
	Facilitator string        `json:"facilitator"`
	Version     string        `json:"version"`
	Networks    []NetworkInfo `json:"networks"`
	Features    []string      `json:"features"`
	Endpoints   gin.H         `json:"endpoints"`
}

// NetworkInfo is the per-network entry of the list response.
type NetworkInfo struct {
	Network         types.Network     `json:"network"`
	ChainID         int64             `json:"chainId"`
	RelayerContract string            `json:"relayerContract"`
	SupportedAssets []types.AssetInfo `json:"supportedAssets"`
}

// Root handles GET /: service metadata and the endpoint directory.
func (s *Server) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":         "B402 Facilitator",
		"version":         ServiceVersion,
		"network":         s.networkLabel(),
		"chainId":         s.cfg.ChainID,
		"relayerContract": s.cfg.RelayerContract.Hex(),
		"endpoints": gin.H{
			"/":        "GET - API information",
			"/health":  "GET - Health check",
			"/list":    "GET - List supported tokens",
			"/verify":  "POST - Verify payment authorization",
			"/settle":  "POST - Execute payment on-chain",
			"/metrics": "GET - Prometheus metrics",
		},
	})
}

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Network: s.cfg.Network(),
		Relayer: s.cfg.RelayerAddress.Hex(),
	})
}

// List handles GET /list: supported network and per-asset metadata, resolved
// through the token info cache.
func (s *Server) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RPCTimeout)
	defer cancel()

	network := types.Network(s.cfg.Network())
	assets := core.SupportedAssets(s.cfg.Mainnet)

	details := make([]types.AssetInfo, 0, len(assets))
	for _, asset := range assets {
		info := s.resolver.Resolve(ctx, asset)
		details = append(details, types.AssetInfo{
			Asset:    asset,
			Symbol:   info.Symbol,
			Name:     info.Name,
			Decimals: info.Decimals,
			Network:  network,
		})
	}

	c.JSON(http.StatusOK, ListResponse{
		Facilitator: "b402",
		Version:     ServiceVersion,
		Networks: []NetworkInfo{{
			Network:         network,
			ChainID:         s.cfg.ChainID,
			RelayerContract: s.cfg.RelayerContract.Hex(),
			SupportedAssets: details,
		}},
		Features: []string{
			"gasless-payments",
			"eip712-signatures",
			"dynamic-token-support",
		},
		Endpoints: gin.H{
			"verify": "/verify",
			"settle": "/settle",
			"list":   "/list",
			"health": "/health",
		},
	})
}

// networkLabel returns the descriptive network name used by the root
// endpoint.
func (s *Server) networkLabel() string {
	if s.cfg.Mainnet {
		return "bsc-mainnet"
	}
	return "bsc-testnet"
}
