package web

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xeromart/storefront/internal/payment"
	"github.com/xeromart/storefront/pkg/types"
)

// OrderService is the order subsystem surface the handlers need.
type OrderService interface {
	PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) ([]string, error)
	Status(ctx context.Context, refno string) (*types.StatusData, error)
	ForceUpdate(ctx context.Context, refno string) error
	Details(ctx context.Context, refno string) (*types.DetailsData, error)
}

// Server is the storefront API server
type Server struct {
	orders   OrderService
	gateway  payment.Gateway
	verifier *payment.Verifier
	router   *gin.Engine
}

// NewServer creates a new API server
func NewServer(orders OrderService, gateway payment.Gateway, verifier *payment.Verifier) *Server {
	router := gin.Default()

	s := &Server{
		orders:   orders,
		gateway:  gateway,
		verifier: verifier,
		router:   router,
	}

	router.GET("/api/health", s.handleHealth)

	orderAPI := router.Group("/api/order")
	{
		orderAPI.POST("/place-order", s.handlePlaceOrder)
		orderAPI.GET("/status/:refno", s.handleStatus)
		orderAPI.POST("/force-update/:refno", s.handleForceUpdate)
		orderAPI.GET("/details/:refno", s.handleDetails)
	}

	paymentAPI := router.Group("/api/payment")
	{
		paymentAPI.POST("/order", s.handlePaymentOrder)
		paymentAPI.POST("/verify", s.handlePaymentVerify)
	}

	return s
}

// Run starts the API server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
