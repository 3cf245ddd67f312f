package types

// PaymentOrderRequest is the body of POST /api/payment/order.
type PaymentOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PaymentOrderData mirrors the gateway order object returned to the
// checkout widget. Amount is in the gateway's smallest currency unit.
type PaymentOrderData struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// VerifyRequest is the body of POST /api/payment/verify: the payment proof
// triple produced by the gateway after checkout.
type VerifyRequest struct {
	RazorpayOrderID string `json:"razorpay_order_id"`
	RazorpayPayID   string `json:"razorpay_payment_id"`
	RazorpaySig     string `json:"razorpay_signature"`
}
