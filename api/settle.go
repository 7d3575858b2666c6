package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"

	"github.com/ctrl-shift-projects/b402-facilitator-go/core"
	"github.com/ctrl-shift-projects/b402-facilitator-go/events"
	"github.com/ctrl-shift-projects/b402-facilitator-go/metrics"
	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

// Settle handles POST /settle: it relays a payment authorization on-chain
// without re-deriving the verify judgment; the relayer contract is the final
// authority on signature, window and nonce. Each call submits at most one
// transaction and is never retried.
func (s *Server) Settle(c *gin.Context) {
	start := time.Now()
	network := types.Network(s.cfg.Network())

	var body types.RequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.metrics.SettleRequests.WithLabelValues(metrics.StatusInvalid).Inc()
		c.JSON(http.StatusBadRequest, types.SettleResponse{
			Success:     false,
			Network:     network,
			ErrorReason: types.ErrorReasonMalformedJSON,
		})
		return
	}

	if reason := core.ValidateStructure(&body); reason != "" {
		s.metrics.SettleRequests.WithLabelValues(metrics.StatusInvalid).Inc()
		c.JSON(http.StatusBadRequest, types.SettleResponse{
			Success:     false,
			Network:     network,
			ErrorReason: types.ErrorReason(reason),
		})
		return
	}

	payload := body.PaymentPayload
	authz := payload.Payload.Authorization
	if body.PaymentRequirements.Network != "" {
		network = body.PaymentRequirements.Network
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.SettleTimeout)
	defer cancel()

	tokenInfo := s.resolver.Resolve(ctx, payload.Token)

	event := events.SettleEvent{
		Payer:     authz.From,
		Recipient: authz.To,
		Token:     payload.Token,
		TokenInfo: tokenInfo,
		Amount:    authz.Value,
		Nonce:     authz.Nonce,
		Network:   network,
		ChainID:   s.cfg.ChainID,
	}

	outcome, reason, err := core.Settle(ctx, s.client, core.SettleParams{
		ChainID:         s.cfg.ChainID,
		RelayerContract: s.cfg.RelayerContract,
		PrivateKey:      s.cfg.PrivateKey(),
		GasLimit:        s.cfg.SettleGasLimit,
	}, payload)

	if err != nil {
		// Execution failure: raw detail goes to the operator log and the
		// event sink, never to the response body.
		log.Error("settle failed", "payer", authz.From, "err", err)
		s.metrics.SettleRequests.WithLabelValues(metrics.StatusFailed).Inc()
		event.ErrorReason = types.ErrorReasonSettleFailed
		event.TotalTime = time.Since(start)
		s.sink.RecordSettle(ctx, event)
		c.JSON(http.StatusInternalServerError, types.SettleResponse{
			Success:     false,
			Network:     network,
			ErrorReason: types.ErrorReasonSettleFailed,
		})
		return
	}

	if reason != "" {
		s.metrics.SettleRequests.WithLabelValues(metrics.StatusFailed).Inc()
		event.ErrorReason = reason
		event.TransactionHash = outcome.Transaction
		event.BlockNumber = outcome.BlockNumber
		event.GasUsed = outcome.GasUsed
		event.TransactionTime = outcome.Duration
		event.TotalTime = time.Since(start)
		s.sink.RecordSettle(ctx, event)

		status := http.StatusBadRequest
		if reason == types.ErrorReasonTransactionRevert {
			status = http.StatusInternalServerError
		}
		c.JSON(status, types.SettleResponse{
			Success:     false,
			Network:     network,
			ErrorReason: reason,
		})
		return
	}

	s.metrics.SettleRequests.WithLabelValues(metrics.StatusSuccess).Inc()
	s.metrics.SettleGasUsed.Set(float64(outcome.GasUsed))
	s.metrics.SettleTransactionTime.Observe(outcome.Duration.Seconds())

	event.Success = true
	event.TransactionHash = outcome.Transaction
	event.BlockNumber = outcome.BlockNumber
	event.GasUsed = outcome.GasUsed
	if outcome.GasPrice != nil {
		event.GasPrice = outcome.GasPrice.String()
	}
	event.TransactionTime = outcome.Duration
	event.TotalTime = time.Since(start)
	s.sink.RecordSettle(ctx, event)

	log.Info("payment settled",
		"tx", outcome.Transaction,
		"block", outcome.BlockNumber,
		"gasUsed", outcome.GasUsed,
		"duration", outcome.Duration,
	)

	c.JSON(http.StatusOK, types.SettleResponse{
		Success:     true,
		Transaction: outcome.Transaction,
		Network:     network,
		Payer:       authz.From,
		BlockNumber: outcome.BlockNumber,
	})
}
