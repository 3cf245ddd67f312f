package types

// PlaceOrderRequest is the body of POST /api/order/place-order.
// Field names follow the payment gateway's checkout callback payload.
type PlaceOrderRequest struct {
	SKU             string  `json:"sku"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	RazorpayOrderID string  `json:"razorpay_order_id"`
	RazorpayPayID   string  `json:"razorpay_payment_id"`
	RazorpaySig     string  `json:"razorpay_signature"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	OrderIndex      int     `json:"orderIndex"`
	ProductName     string  `json:"productName"`
}

// PlacedCard identifies one created order record.
type PlacedCard struct {
	Refno string `json:"refno"`
}

// PlaceOrderData is the success payload of place-order. Refno repeats the
// first card's refno for single-unit callers.
type PlaceOrderData struct {
	Refno string       `json:"refno"`
	Cards []PlacedCard `json:"cards"`
}

// StatusData is the payload of GET /api/order/status/:refno.
type StatusData struct {
	Status      string `json:"status"`
	LocalStatus string `json:"localStatus"`
}

// DetailsData is the payload of GET /api/order/details/:refno. Card fields
// are omitted entirely unless the order is COMPLETE; callers treat their
// absence as "issuance not finished".
type DetailsData struct {
	Refno        string  `json:"refno"`
	SKU          string  `json:"sku"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status"`
	LocalStatus  string  `json:"localStatus"`
	CardNumber   string  `json:"cardNumber,omitempty"`
	CardPin      string  `json:"cardPin,omitempty"`
	Validity     string  `json:"validity,omitempty"`
	IssuanceDate string  `json:"issuanceDate,omitempty"`
}
