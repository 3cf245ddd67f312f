package order

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/xeromart/storefront/internal/issuer"
	"github.com/xeromart/storefront/internal/payment"
	"github.com/xeromart/storefront/internal/storage"
	"github.com/xeromart/storefront/pkg/types"
)

// OrderStorage is the persistence surface the service needs.
type OrderStorage interface {
	CreateOrder(r *storage.OrderRecord) error
	GetOrder(refno string) (*storage.OrderRecord, error)
	FindByPayment(paymentID, sku string, orderIndex int) (*storage.OrderRecord, error)
	ApplyIssuance(refno, status, localStatus, cardNumber, cardPin, validity, issuanceDate, issuerRef string) error
	SetLocalStatus(refno, localStatus string) error
	ListPending(limit int) ([]*storage.OrderRecord, error)
	MaxRefnoSeq() (int64, error)
	Close() error
}

// ProofVerifier checks payment proofs.
type ProofVerifier interface {
	Verify(p payment.Proof) error
}

// Service implements order placement and the status store operations.
type Service struct {
	store    OrderStorage
	issuer   issuer.Issuer
	verifier ProofVerifier

	refnoSeq atomic.Int64
}

// ServiceDeps holds dependencies for constructing a Service.
type ServiceDeps struct {
	Store    OrderStorage
	Issuer   issuer.Issuer
	Verifier ProofVerifier
}

// Config configures NewService.
type Config struct {
	DBPath        string
	IssuerBaseURL string
	IssuerAPIKey  string
	GatewaySecret string
}

// NewService creates a service with SQLite-backed storage and the HTTP
// issuer client.
func NewService(cfg Config) (*Service, error) {
	store, err := storage.NewOrderStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open order store: %w", err)
	}

	return newService(ServiceDeps{
		Store:    store,
		Issuer:   issuer.NewHTTPClient(cfg.IssuerBaseURL, cfg.IssuerAPIKey),
		Verifier: payment.NewVerifier(cfg.GatewaySecret),
	}), nil
}

// NewServiceWithDeps creates a service with explicit dependencies (for testing).
func NewServiceWithDeps(deps ServiceDeps) *Service {
	return newService(deps)
}

// refnoSeqBase is the floor of the refno sequence on a fresh database.
const refnoSeqBase = 1000

func newService(deps ServiceDeps) *Service {
	s := &Service{
		store:    deps.Store,
		issuer:   deps.Issuer,
		verifier: deps.Verifier,
	}
	// Continue the sequence from the records already on disk, so a restart
	// (or a clock regression) can never re-mint an existing refno.
	seq, err := deps.Store.MaxRefnoSeq()
	if err != nil {
		log.Printf("Warning: could not read refno sequence: %v", err)
	}
	if seq < refnoSeqBase {
		seq = refnoSeqBase
	}
	s.refnoSeq.Store(seq)
	return s
}

// Close releases storage resources.
func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) newRefno() string {
	return fmt.Sprintf("%s%d", types.RefnoPrefix, s.refnoSeq.Add(1))
}

// PlaceOrder verifies the payment proof and creates one PENDING record per
// unit of quantity, returning their refnos. Issuance runs asynchronously;
// the caller observes completion only through Status/Details.
//
// Re-submitting the same proof (a retried request) returns the refnos
// already created for that payment instead of issuing duplicate cards:
// (payment id, sku, order index) is the idempotency key.
func (s *Service) PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) ([]string, error) {
	if req.FirstName == "" || req.LastName == "" {
		return nil, fmt.Errorf("buyer first and last name are required")
	}
	if req.SKU == "" {
		return nil, fmt.Errorf("sku is required")
	}

	if err := s.verifier.Verify(payment.Proof{
		OrderID:   req.RazorpayOrderID,
		PaymentID: req.RazorpayPayID,
		Signature: req.RazorpaySig,
	}); err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	now := time.Now().UTC()
	refnos := make([]string, 0, quantity)
	var fresh []*storage.OrderRecord

	for i := 0; i < quantity; i++ {
		idx := req.OrderIndex + i

		if existing, err := s.store.FindByPayment(req.RazorpayPayID, req.SKU, idx); err == nil {
			refnos = append(refnos, existing.Refno)
			continue
		}

		record := &storage.OrderRecord{
			Refno:        s.newRefno(),
			SKU:          req.SKU,
			Amount:       req.Price,
			PaymentID:    req.RazorpayPayID,
			GatewayOrder: req.RazorpayOrderID,
			OrderIndex:   idx,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			Phone:        req.Phone,
			ProductName:  req.ProductName,
			Status:       storage.StatusPending,
			LocalStatus:  storage.LocalCreated,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.store.CreateOrder(record); err != nil {
			// A concurrent duplicate of the same request may have won the
			// unique-index race; fall back to the record it created.
			if existing, lookupErr := s.store.FindByPayment(req.RazorpayPayID, req.SKU, idx); lookupErr == nil {
				refnos = append(refnos, existing.Refno)
				continue
			}
			return nil, fmt.Errorf("failed to create order record: %w", err)
		}

		refnos = append(refnos, record.Refno)
		fresh = append(fresh, record)
	}

	if len(fresh) > 0 {
		// Fire-and-forget: the HTTP response never waits for issuance.
		go s.issueAll(context.Background(), fresh)
	}

	return refnos, nil
}

func (s *Service) issueAll(ctx context.Context, records []*storage.OrderRecord) {
	for _, r := range records {
		if err := s.store.SetLocalStatus(r.Refno, storage.LocalProcessing); err != nil {
			log.Printf("Warning: failed to mark %s processing: %v", r.Refno, err)
		}

		iss, err := s.issuer.Issue(ctx, issuer.IssueRequest{
			Refno:       r.Refno,
			SKU:         r.SKU,
			Amount:      r.Amount,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Email:       r.Email,
			ProductName: r.ProductName,
		})
		if err != nil {
			// Transient: the record stays PENDING and is picked up again by
			// force-update or the background reconciler.
			log.Printf("Warning: issuance for %s failed: %v", r.Refno, err)
			continue
		}

		if err := s.applyIssuance(r.Refno, iss); err != nil {
			log.Printf("Warning: failed to record issuance for %s: %v", r.Refno, err)
		}
	}
}

// applyIssuance maps a partner-reported state onto the order record.
func (s *Service) applyIssuance(refno string, iss *issuer.Issuance) error {
	switch iss.State {
	case issuer.StateIssued:
		return s.store.ApplyIssuance(refno, storage.StatusComplete, storage.LocalCompleted,
			iss.CardNumber, iss.CardPin, iss.Validity, iss.IssuanceDate, iss.IssuerRef)
	case issuer.StateCanceled:
		return s.store.ApplyIssuance(refno, storage.StatusCanceled, storage.LocalFailed,
			"", "", "", "", iss.IssuerRef)
	case issuer.StateFailed:
		return s.store.ApplyIssuance(refno, storage.StatusError, storage.LocalFailed,
			"", "", "", "", iss.IssuerRef)
	default:
		// Still processing upstream.
		return s.store.SetLocalStatus(refno, storage.LocalProcessing)
	}
}

// Status is a pure read of an order's lifecycle state.
func (s *Service) Status(ctx context.Context, refno string) (*types.StatusData, error) {
	r, err := s.store.GetOrder(refno)
	if err != nil {
		return nil, err
	}
	return &types.StatusData{Status: r.Status, LocalStatus: r.LocalStatus}, nil
}

// ForceUpdate re-queries the upstream issuer for the record's current state
// and applies it. A no-op for terminal records, so it is safe to call any
// number of times and safe to race.
func (s *Service) ForceUpdate(ctx context.Context, refno string) error {
	r, err := s.store.GetOrder(refno)
	if err != nil {
		return err
	}
	if r.Terminal() {
		return nil
	}

	iss, err := s.issuer.Sync(ctx, refno)
	if err != nil {
		return fmt.Errorf("issuer sync failed: %w", err)
	}

	return s.applyIssuance(refno, iss)
}

// Details returns the full record. Card secrets are populated only when the
// order is COMPLETE; their absence despite a COMPLETE status tells the
// caller issuance has not actually landed yet.
func (s *Service) Details(ctx context.Context, refno string) (*types.DetailsData, error) {
	r, err := s.store.GetOrder(refno)
	if err != nil {
		return nil, err
	}

	d := &types.DetailsData{
		Refno:       r.Refno,
		SKU:         r.SKU,
		Amount:      r.Amount,
		Status:      r.Status,
		LocalStatus: r.LocalStatus,
	}
	if r.Status == storage.StatusComplete {
		d.CardNumber = r.CardNumber
		d.CardPin = r.CardPin
		d.Validity = r.Validity
		d.IssuanceDate = r.IssuanceDate
	}
	return d, nil
}
