package order

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xeromart/storefront/internal/issuer"
	"github.com/xeromart/storefront/internal/payment"
	"github.com/xeromart/storefront/internal/storage"
	"github.com/xeromart/storefront/pkg/types"
)

// fakeIssuer implements issuer.Issuer with pluggable behavior.
type fakeIssuer struct {
	mu         sync.Mutex
	issueCalls int
	syncCalls  int

	IssueFunc func(ctx context.Context, req issuer.IssueRequest) (*issuer.Issuance, error)
	SyncFunc  func(ctx context.Context, refno string) (*issuer.Issuance, error)
}

func (f *fakeIssuer) Issue(ctx context.Context, req issuer.IssueRequest) (*issuer.Issuance, error) {
	f.mu.Lock()
	f.issueCalls++
	f.mu.Unlock()
	if f.IssueFunc != nil {
		return f.IssueFunc(ctx, req)
	}
	return &issuer.Issuance{State: issuer.StateProcessing}, nil
}

func (f *fakeIssuer) Sync(ctx context.Context, refno string) (*issuer.Issuance, error) {
	f.mu.Lock()
	f.syncCalls++
	f.mu.Unlock()
	if f.SyncFunc != nil {
		return f.SyncFunc(ctx, refno)
	}
	return &issuer.Issuance{State: issuer.StateProcessing}, nil
}

func (f *fakeIssuer) calls() (issue, sync int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueCalls, f.syncCalls
}

const testSecret = "test-key-secret"

func newTestService(t *testing.T, iss issuer.Issuer) *Service {
	t.Helper()

	store, err := storage.NewOrderStore(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewServiceWithDeps(ServiceDeps{
		Store:    store,
		Issuer:   iss,
		Verifier: payment.NewVerifier(testSecret),
	})
}

func signedRequest(quantity int) types.PlaceOrderRequest {
	v := payment.NewVerifier(testSecret)
	return types.PlaceOrderRequest{
		SKU:             "GC-500",
		Price:           500,
		Quantity:        quantity,
		RazorpayOrderID: "order_test1",
		RazorpayPayID:   "pay_test1",
		RazorpaySig:     v.Sign("order_test1", "pay_test1"),
		FirstName:       "Asha",
		LastName:        "Rao",
		Email:           "asha@example.com",
	}
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestPlaceOrder_RequiresBuyerName(t *testing.T) {
	svc := newTestService(t, &fakeIssuer{})

	req := signedRequest(1)
	req.LastName = ""

	if _, err := svc.PlaceOrder(context.Background(), req); err == nil {
		t.Fatal("expected placement without last name to fail")
	}

	// No dangling record may exist for the rejected request.
	if _, err := svc.Status(context.Background(), types.RefnoPrefix+"1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected no record, got %v", err)
	}
}

func TestPlaceOrder_RejectsInvalidSignature(t *testing.T) {
	iss := &fakeIssuer{}
	svc := newTestService(t, iss)

	req := signedRequest(1)
	req.RazorpaySig = "forged"

	if _, err := svc.PlaceOrder(context.Background(), req); !errors.Is(err, payment.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if calls, _ := iss.calls(); calls != 0 {
		t.Errorf("issuer must not be called for an unverified proof, got %d calls", calls)
	}
}

func TestPlaceOrder_CreatesOneRecordPerUnit(t *testing.T) {
	release := make(chan struct{})
	iss := &fakeIssuer{
		IssueFunc: func(ctx context.Context, req issuer.IssueRequest) (*issuer.Issuance, error) {
			<-release
			return &issuer.Issuance{State: issuer.StateProcessing}, nil
		},
	}
	svc := newTestService(t, iss)

	// PlaceOrder must return immediately with PENDING records even while the
	// issuer is still working.
	refnos, err := svc.PlaceOrder(context.Background(), signedRequest(3))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	close(release)

	if len(refnos) != 3 {
		t.Fatalf("expected 3 refnos, got %d", len(refnos))
	}
	seen := map[string]bool{}
	for _, r := range refnos {
		if !strings.HasPrefix(r, types.RefnoPrefix) {
			t.Errorf("refno %q missing authoritative prefix", r)
		}
		if seen[r] {
			t.Errorf("duplicate refno %q", r)
		}
		seen[r] = true

		st, err := svc.Status(context.Background(), r)
		if err != nil {
			t.Fatalf("Status(%s): %v", r, err)
		}
		if st.Status != storage.StatusPending {
			t.Errorf("expected PENDING, got %s", st.Status)
		}
	}
}

func TestPlaceOrder_RefnoSequenceSurvivesRestart(t *testing.T) {
	store, err := storage.NewOrderStore(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	v := payment.NewVerifier(testSecret)
	newSvc := func() *Service {
		return NewServiceWithDeps(ServiceDeps{
			Store:    store,
			Issuer:   &fakeIssuer{},
			Verifier: v,
		})
	}

	first, err := newSvc().PlaceOrder(context.Background(), signedRequest(1))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	// A restarted server over the same database must continue the sequence,
	// never re-mint an existing refno.
	req := signedRequest(1)
	req.RazorpayOrderID = "order_test2"
	req.RazorpayPayID = "pay_test2"
	req.RazorpaySig = v.Sign("order_test2", "pay_test2")

	second, err := newSvc().PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("PlaceOrder after restart: %v", err)
	}

	if second[0] == first[0] {
		t.Fatalf("restarted service re-minted refno %s", first[0])
	}
	for _, refno := range []string{first[0], second[0]} {
		if _, err := store.GetOrder(refno); err != nil {
			t.Errorf("expected record for %s, got %v", refno, err)
		}
	}
}

func TestPlaceOrder_RetriedRequestIsIdempotent(t *testing.T) {
	iss := &fakeIssuer{}
	svc := newTestService(t, iss)

	first, err := svc.PlaceOrder(context.Background(), signedRequest(2))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	waitFor(t, func() bool { c, _ := iss.calls(); return c == 2 }, "initial issuance calls")

	// The buyer retries the same request after a perceived failure.
	second, err := svc.PlaceOrder(context.Background(), signedRequest(2))
	if err != nil {
		t.Fatalf("retried PlaceOrder: %v", err)
	}

	if len(second) != 2 || second[0] != first[0] || second[1] != first[1] {
		t.Errorf("retry must return the original refnos: %v vs %v", first, second)
	}

	time.Sleep(50 * time.Millisecond)
	if calls, _ := iss.calls(); calls != 2 {
		t.Errorf("retry must not re-issue cards, issuer called %d times", calls)
	}
}

func TestPlaceOrder_AsyncIssuanceCompletes(t *testing.T) {
	iss := &fakeIssuer{
		IssueFunc: func(ctx context.Context, req issuer.IssueRequest) (*issuer.Issuance, error) {
			return &issuer.Issuance{
				State:        issuer.StateIssued,
				CardNumber:   "6073849900112233",
				CardPin:      "9912",
				Validity:     "2027-08-31",
				IssuanceDate: "2026-08-28",
				IssuerRef:    "ISS-" + req.Refno,
			}, nil
		},
	}
	svc := newTestService(t, iss)

	refnos, err := svc.PlaceOrder(context.Background(), signedRequest(1))
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		st, err := svc.Status(context.Background(), refnos[0])
		return err == nil && st.Status == storage.StatusComplete
	}, "issuance to complete")

	d, err := svc.Details(context.Background(), refnos[0])
	if err != nil {
		t.Fatal(err)
	}
	if d.CardNumber != "6073849900112233" || d.CardPin != "9912" {
		t.Errorf("expected card secrets, got %+v", d)
	}
	if d.LocalStatus != storage.LocalCompleted {
		t.Errorf("expected localStatus completed, got %s", d.LocalStatus)
	}
}

func TestDetails_OmitsSecretsWhilePending(t *testing.T) {
	svc := newTestService(t, &fakeIssuer{})

	refnos, err := svc.PlaceOrder(context.Background(), signedRequest(1))
	if err != nil {
		t.Fatal(err)
	}

	d, err := svc.Details(context.Background(), refnos[0])
	if err != nil {
		t.Fatal(err)
	}
	if d.CardNumber != "" || d.CardPin != "" {
		t.Errorf("secrets must be absent while pending: %+v", d)
	}
}

func TestForceUpdate_SyncsPendingRecord(t *testing.T) {
	iss := &fakeIssuer{
		SyncFunc: func(ctx context.Context, refno string) (*issuer.Issuance, error) {
			return &issuer.Issuance{
				State:      issuer.StateIssued,
				CardNumber: "6073",
				CardPin:    "1111",
			}, nil
		},
	}
	svc := newTestService(t, iss)

	refnos, err := svc.PlaceOrder(context.Background(), signedRequest(1))
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { c, _ := iss.calls(); return c == 1 }, "initial issue call")

	if err := svc.ForceUpdate(context.Background(), refnos[0]); err != nil {
		t.Fatalf("ForceUpdate: %v", err)
	}

	st, err := svc.Status(context.Background(), refnos[0])
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != storage.StatusComplete {
		t.Errorf("expected COMPLETE after force-update, got %s", st.Status)
	}
}

func TestForceUpdate_NoOpOnTerminalRecord(t *testing.T) {
	iss := &fakeIssuer{
		IssueFunc: func(ctx context.Context, req issuer.IssueRequest) (*issuer.Issuance, error) {
			return &issuer.Issuance{State: issuer.StateIssued, CardNumber: "6073", CardPin: "1111"}, nil
		},
	}
	svc := newTestService(t, iss)

	refnos, err := svc.PlaceOrder(context.Background(), signedRequest(1))
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		st, err := svc.Status(context.Background(), refnos[0])
		return err == nil && st.Status == storage.StatusComplete
	}, "issuance to complete")

	// Repeated force-updates of a complete order never reach the issuer and
	// never change the card data.
	before, _ := svc.Details(context.Background(), refnos[0])
	for i := 0; i < 3; i++ {
		if err := svc.ForceUpdate(context.Background(), refnos[0]); err != nil {
			t.Fatalf("ForceUpdate #%d: %v", i, err)
		}
	}
	after, _ := svc.Details(context.Background(), refnos[0])

	if _, syncs := iss.calls(); syncs != 0 {
		t.Errorf("terminal force-update must not call the issuer, got %d syncs", syncs)
	}
	if *before != *after {
		t.Errorf("card data drifted: %+v vs %+v", before, after)
	}
}

func TestForceUpdate_UnknownRefno(t *testing.T) {
	svc := newTestService(t, &fakeIssuer{})

	err := svc.ForceUpdate(context.Background(), "XMR4040")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyIssuance_CanceledUpstream(t *testing.T) {
	iss := &fakeIssuer{
		IssueFunc: func(ctx context.Context, req issuer.IssueRequest) (*issuer.Issuance, error) {
			return &issuer.Issuance{State: issuer.StateCanceled}, nil
		},
	}
	svc := newTestService(t, iss)

	refnos, err := svc.PlaceOrder(context.Background(), signedRequest(1))
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		st, err := svc.Status(context.Background(), refnos[0])
		return err == nil && st.Status == storage.StatusCanceled
	}, "cancellation to land")
}
