package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xeromart/storefront/internal/payment"
	"github.com/xeromart/storefront/internal/storage"
	"github.com/xeromart/storefront/pkg/types"
)

const maxQuantity = 10

// handleHealth is the lightweight probe used by clients to confirm
// connectivity before starting a recovery pass.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handlePlaceOrder(c *gin.Context) {
	var req types.PlaceOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.Quantity > maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "quantity exceeds maximum",
		})
		return
	}

	refnos, err := s.orders.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, payment.ErrInvalidSignature) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   "order placement failed",
			"details": err.Error(),
		})
		return
	}

	cards := make([]types.PlacedCard, len(refnos))
	for i, r := range refnos {
		cards[i] = types.PlacedCard{Refno: r}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": types.PlaceOrderData{
			Refno: refnos[0],
			Cards: cards,
		},
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	refno := c.Param("refno")

	status, err := s.orders.Status(c.Request.Context(), refno)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    status,
	})
}

func (s *Server) handleForceUpdate(c *gin.Context) {
	refno := c.Param("refno")

	if err := s.orders.ForceUpdate(c.Request.Context(), refno); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "order not found",
			})
			return
		}
		// Best-effort: callers proceed to the status check regardless.
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDetails(c *gin.Context) {
	refno := c.Param("refno")

	details, err := s.orders.Details(c.Request.Context(), refno)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    details,
	})
}

func (s *Server) handlePaymentOrder(c *gin.Context) {
	var req types.PaymentOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}

	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "amount must be positive",
		})
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	order, err := s.gateway.CreateOrder(c.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": types.PaymentOrderData{
			ID:       order.ID,
			Amount:   order.Amount,
			Currency: order.Currency,
			Status:   order.Status,
		},
	})
}

func (s *Server) handlePaymentVerify(c *gin.Context) {
	var req types.VerifyRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}

	if err := s.verifier.Verify(payment.Proof{
		OrderID:   req.RazorpayOrderID,
		PaymentID: req.RazorpayPayID,
		Signature: req.RazorpaySig,
	}); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "signature verification failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
