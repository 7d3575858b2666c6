package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"

	"github.com/ctrl-shift-projects/b402-facilitator-go/core"
	"github.com/ctrl-shift-projects/b402-facilitator-go/events"
	"github.com/ctrl-shift-projects/b402-facilitator-go/metrics"
	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

// Verify handles POST /verify: signature, replay and timing validation in
// that order. Validity outcomes travel in the body with HTTP 200; only
// structural failures produce a 400 and only internal failures a 500.
func (s *Server) Verify(c *gin.Context) {
	start := time.Now()

	var body types.RequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.metrics.VerifyRequests.WithLabelValues(metrics.StatusInvalid).Inc()
		c.JSON(http.StatusBadRequest, types.VerifyResponse{
			IsValid:       false,
			InvalidReason: types.InvalidReasonMalformedJSON,
		})
		return
	}

	// Structural rejection happens before any chain access.
	if reason := core.ValidateStructure(&body); reason != "" {
		s.metrics.VerifyRequests.WithLabelValues(metrics.StatusInvalid).Inc()
		c.JSON(http.StatusBadRequest, types.VerifyResponse{
			IsValid:       false,
			InvalidReason: reason,
		})
		return
	}

	payload := body.PaymentPayload
	authz := payload.Payload.Authorization
	network := body.PaymentRequirements.Network
	if network == "" {
		network = types.Network(s.cfg.Network())
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RPCTimeout)
	defer cancel()

	tokenInfo := s.resolver.Resolve(ctx, payload.Token)

	event := events.VerifyEvent{
		Payer:     authz.From,
		Recipient: authz.To,
		Token:     payload.Token,
		TokenInfo: tokenInfo,
		Amount:    authz.Value,
		Nonce:     authz.Nonce,
		Network:   network,
		ChainID:   s.cfg.ChainID,
	}

	reject := func(reason types.InvalidReason) {
		s.metrics.VerifyRequests.WithLabelValues(metrics.StatusFailed).Inc()
		event.InvalidReason = reason
		event.Duration = time.Since(start)
		s.sink.RecordVerify(ctx, event)
		c.JSON(http.StatusOK, types.VerifyResponse{
			IsValid:       false,
			InvalidReason: reason,
		})
	}

	// Signature first: replay state is only queried for a from address the
	// signature vouches for.
	_, reason := core.RecoverSigner(core.VerifyParams{
		ChainID:         s.cfg.ChainID,
		RelayerContract: body.PaymentRequirements.RelayerContract,
	}, authz, payload.Payload.Signature)
	if reason != "" {
		reject(reason)
		return
	}

	reason, err := core.CheckReplay(ctx, s.client, s.cfg.RelayerContract, common.HexToAddress(authz.From), authz.Nonce)
	if err != nil {
		log.Error("verify failed", "payer", authz.From, "err", err)
		s.metrics.VerifyRequests.WithLabelValues(metrics.StatusError).Inc()
		c.JSON(http.StatusInternalServerError, types.VerifyResponse{
			IsValid:       false,
			InvalidReason: types.InvalidReasonVerifyFailed,
		})
		return
	}
	if reason != "" {
		reject(reason)
		return
	}

	if reason := core.CheckWindow(authz, time.Now()); reason != "" {
		reject(reason)
		return
	}

	s.metrics.VerifyRequests.WithLabelValues(metrics.StatusSuccess).Inc()
	event.IsValid = true
	event.Duration = time.Since(start)
	s.sink.RecordVerify(ctx, event)

	log.Info("payment verified",
		"payer", authz.From,
		"recipient", authz.To,
		"amount", authz.Value,
		"symbol", tokenInfo.Symbol,
	)

	c.JSON(http.StatusOK, types.VerifyResponse{
		IsValid: true,
		Payer:   authz.From,
	})
}
