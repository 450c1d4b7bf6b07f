package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/models"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/paystack"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. They validate the reconciliation
// semantics against an in-memory ledger:
// - duplicate and concurrent settlement claims transition an order exactly once
// - amount mismatches never mark an order paid
// - the webhook path bypasses the ownership check, user paths do not
//
// Full MySQL integration coverage belongs in an environment that can run the
// docker-compose stack.

type fakeLedger struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	users    map[int]*models.User
	payments map[string]*models.Payment // keyed by order id
	failTx   bool

	paymentWrites int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		orders:   map[string]*models.Order{},
		users:    map[int]*models.User{},
		payments: map[string]*models.Payment{},
	}
}

func (l *fakeLedger) addOrder(id string, userID int, totalMajor int64, status models.OrderStatus) {
	l.orders[id] = &models.Order{
		ID:          id,
		UserId:      userID,
		TotalAmount: decimal.NewFromInt(totalMajor),
		Status:      status,
	}
}

func (l *fakeLedger) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (l *fakeLedger) GetOrderByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for orderID, p := range l.payments {
		if p.Reference == reference {
			copied := *l.orders[orderID]
			return &copied, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func (l *fakeLedger) GetUser(ctx context.Context, userID int) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	user, ok := l.users[userID]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (l *fakeLedger) MarkOrderPaid(ctx context.Context, orderID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok || order.Status != models.OrderStatusUnpaid {
		return 0, nil
	}
	order.Status = models.OrderStatusPaid
	return 1, nil
}

func (l *fakeLedger) UpsertPayment(ctx context.Context, payment *models.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payments[payment.OrderId] = payment
	l.paymentWrites++
	return nil
}

func (l *fakeLedger) Transaction(ctx context.Context, fn func(tx models.Ledger) error) error {
	if l.failTx {
		return errors.New("deadlock found when trying to get lock")
	}
	return fn(l)
}

func (l *fakeLedger) orderStatus(orderID string) models.OrderStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.orders[orderID].Status
}

type fakeGateway struct {
	mu          sync.Mutex
	verifyCalls int
	initCalls   int

	verifyFn   func(reference string) (*paystack.VerifyResult, error)
	initResult *paystack.InitializeResult
	initErr    error

	lastInitEmail   string
	lastInitOrderID string
}

func (g *fakeGateway) Initialize(ctx context.Context, email string, amount decimal.Decimal, orderID string) (*paystack.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	g.lastInitEmail = email
	g.lastInitOrderID = orderID
	if g.initErr != nil {
		return nil, g.initErr
	}
	return g.initResult, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyFn == nil {
		return nil, errors.New("verify not configured")
	}
	return g.verifyFn(reference)
}

type fakeNotifier struct {
	mu        sync.Mutex
	paid      int
	lastEmail string
}

func (n *fakeNotifier) OrderCreated(ctx context.Context, email string, orderID string, amount decimal.Decimal) {
}

func (n *fakeNotifier) OrderPaid(ctx context.Context, email string, name string, orderID string, amount decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid++
	n.lastEmail = email
}

func (n *fakeNotifier) FulfillmentChanged(ctx context.Context, email string, orderID string, status string) {
}

func (n *fakeNotifier) PasswordReset(ctx context.Context, email string, resetURL string) {
}

func (n *fakeNotifier) paidCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.paid
}

type fakeLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(ledger *fakeLedger, gateway *fakeGateway, notifier *fakeNotifier) *Engine {
	return &Engine{
		Ledger:   ledger,
		Gateway:  gateway,
		Notifier: notifier,
		Logger:   quietLogger(),
	}
}

func TestReconcile_MarksUnpaidOrderPaid(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
	notifier := &fakeNotifier{}
	engine := newTestEngine(ledger, &fakeGateway{}, notifier)

	res := engine.Reconcile(context.Background(), Event{
		OrderID:     "order-1",
		Reference:   "ref-1",
		AmountMinor: 500000,
		Source:      SourceWebhook,
	})

	if !res.Success {
		t.Fatalf("expected success, got reason=%s message=%q", res.Reason, res.Message)
	}
	if res.OrderID != "order-1" {
		t.Fatalf("expected order id in result, got %q", res.OrderID)
	}
	if got := ledger.orderStatus("order-1"); got != models.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", got)
	}
	payment := ledger.payments["order-1"]
	if payment == nil || payment.Reference != "ref-1" {
		t.Fatalf("expected payment row with reference ref-1, got %+v", payment)
	}
	if !payment.Amount.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected payment amount 5000, got %s", payment.Amount)
	}
	if notifier.paidCount() != 1 {
		t.Fatalf("expected exactly 1 confirmation email, got %d", notifier.paidCount())
	}
	if notifier.lastEmail != "buyer@example.com" {
		t.Fatalf("confirmation sent to %q", notifier.lastEmail)
	}
}

func TestReconcile_DuplicateDelivery_TransitionsOnce(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
	notifier := &fakeNotifier{}
	engine := newTestEngine(ledger, &fakeGateway{}, notifier)

	ev := Event{OrderID: "order-1", Reference: "ref-1", AmountMinor: 500000, Source: SourceWebhook}

	first := engine.Reconcile(context.Background(), ev)
	second := engine.Reconcile(context.Background(), ev)

	if !first.Success || !second.Success {
		t.Fatalf("both deliveries should succeed: first=%+v second=%+v", first, second)
	}
	if second.Reason != ReasonAlreadyPaid {
		t.Fatalf("replay should report AlreadyPaid, got %s", second.Reason)
	}
	if ledger.paymentWrites != 1 {
		t.Fatalf("expected 1 payment write, got %d", ledger.paymentWrites)
	}
	if notifier.paidCount() != 1 {
		t.Fatalf("expected 1 email, got %d", notifier.paidCount())
	}
}

func TestReconcile_ConcurrentClaims_ExactlyOneWinner(t *testing.T) {
	for run := 0; run < 50; run++ {
		ledger := newFakeLedger()
		ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
		ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
		notifier := &fakeNotifier{}
		engine := newTestEngine(ledger, &fakeGateway{}, notifier)

		// Webhook retry racing the verification poller on the same settlement.
		sources := []Source{SourceWebhook, SourcePoll, SourceWebhook, SourcePoll, SourceWebhook}
		results := make([]Result, len(sources))
		var wg sync.WaitGroup
		for i, src := range sources {
			wg.Add(1)
			go func(i int, src Source) {
				defer wg.Done()
				ev := Event{OrderID: "order-1", Reference: "ref-1", AmountMinor: 500000, Source: src}
				if src == SourcePoll {
					ev.CallerUserID = 7
				}
				results[i] = engine.Reconcile(context.Background(), ev)
			}(i, src)
		}
		wg.Wait()

		for i, res := range results {
			if !res.Success {
				t.Fatalf("run=%d claim %d failed: %+v", run, i, res)
			}
		}
		if ledger.paymentWrites != 1 {
			t.Fatalf("run=%d expected exactly 1 payment write, got %d", run, ledger.paymentWrites)
		}
		if notifier.paidCount() != 1 {
			t.Fatalf("run=%d expected exactly 1 email, got %d", run, notifier.paidCount())
		}
	}
}

func TestReconcile_AmountMismatch_LeavesOrderUnpaid(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	notifier := &fakeNotifier{}
	engine := newTestEngine(ledger, &fakeGateway{}, notifier)

	// Claims 4000 against a 5000 order.
	res := engine.Reconcile(context.Background(), Event{
		OrderID:     "order-1",
		Reference:   "ref-1",
		AmountMinor: 400000,
		Source:      SourceWebhook,
	})

	if res.Success {
		t.Fatal("mismatched settlement must not succeed")
	}
	if res.Reason != ReasonAmountMismatch {
		t.Fatalf("expected AmountMismatch, got %s", res.Reason)
	}
	if res.Retryable() {
		t.Fatal("a mismatch must not be retried")
	}
	if got := ledger.orderStatus("order-1"); got != models.OrderStatusUnpaid {
		t.Fatalf("order must stay UNPAID, got %s", got)
	}
	if ledger.paymentWrites != 0 {
		t.Fatalf("no payment row expected, got %d writes", ledger.paymentWrites)
	}
	if notifier.paidCount() != 0 {
		t.Fatalf("no email expected, got %d", notifier.paidCount())
	}
}

func TestReconcile_MinorUnitConversion(t *testing.T) {
	cases := []struct {
		name        string
		amountMinor int64
		wantSuccess bool
	}{
		{"exact kobo amount", 500000, true},
		{"one kobo under, within tolerance", 499999, true},
		{"one kobo over, within tolerance", 500001, true},
		{"naira passed where kobo expected", 5000, false},
		{"two kobo off", 500002, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := newFakeLedger()
			ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
			ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
			engine := newTestEngine(ledger, &fakeGateway{}, &fakeNotifier{})

			res := engine.Reconcile(context.Background(), Event{
				OrderID:     "order-1",
				Reference:   "ref-1",
				AmountMinor: tc.amountMinor,
				Source:      SourceWebhook,
			})
			if res.Success != tc.wantSuccess {
				t.Fatalf("amount %d: success=%v, want %v (reason=%s)", tc.amountMinor, res.Success, tc.wantSuccess, res.Reason)
			}
		})
	}
}

func TestReconcile_OwnershipCheck(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
	engine := newTestEngine(ledger, &fakeGateway{}, &fakeNotifier{})

	res := engine.Reconcile(context.Background(), Event{
		OrderID:      "order-1",
		Reference:    "ref-1",
		AmountMinor:  500000,
		Source:       SourceRedirect,
		CallerUserID: 99,
	})
	if res.Success || res.Reason != ReasonUnauthorized {
		t.Fatalf("stranger's verify must be rejected, got %+v", res)
	}
	if got := ledger.orderStatus("order-1"); got != models.OrderStatusUnpaid {
		t.Fatalf("order must stay UNPAID, got %s", got)
	}

	// The signed webhook carries no user identity and is exempt.
	res = engine.Reconcile(context.Background(), Event{
		OrderID:     "order-1",
		Reference:   "ref-1",
		AmountMinor: 500000,
		Source:      SourceWebhook,
	})
	if !res.Success {
		t.Fatalf("webhook delivery should succeed, got %+v", res)
	}
}

func TestReconcile_CancelledOrderNotEligible(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusCancelled)
	engine := newTestEngine(ledger, &fakeGateway{}, &fakeNotifier{})

	res := engine.Reconcile(context.Background(), Event{
		OrderID:     "order-1",
		AmountMinor: 500000,
		Source:      SourceWebhook,
	})
	if res.Success || res.Reason != ReasonNotEligible {
		t.Fatalf("cancelled order must not accept payment, got %+v", res)
	}
	if res.Retryable() {
		t.Fatal("NotEligible must not be retried")
	}
}

func TestReconcile_UnknownOrder(t *testing.T) {
	engine := newTestEngine(newFakeLedger(), &fakeGateway{}, &fakeNotifier{})

	res := engine.Reconcile(context.Background(), Event{
		OrderID:     "nope",
		AmountMinor: 500000,
		Source:      SourceWebhook,
	})
	if res.Success || res.Reason != ReasonOrderNotFound {
		t.Fatalf("expected OrderNotFound, got %+v", res)
	}
}

func TestReconcile_ResolvesOrderThroughGatewayMetadata(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
	gateway := &fakeGateway{
		verifyFn: func(reference string) (*paystack.VerifyResult, error) {
			return &paystack.VerifyResult{
				Succeeded:   true,
				Status:      "success",
				Reference:   reference,
				AmountMinor: 500000,
				OrderID:     "order-1",
			}, nil
		},
	}
	engine := newTestEngine(ledger, gateway, &fakeNotifier{})

	// Redirect-back flow: the client only has the provider reference.
	res := engine.Reconcile(context.Background(), Event{
		Reference:    "ref-1",
		Source:       SourceRedirect,
		CallerUserID: 7,
	})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.OrderID != "order-1" {
		t.Fatalf("expected resolved order id, got %q", res.OrderID)
	}
	if gateway.verifyCalls != 1 {
		t.Fatalf("gateway should be consulted exactly once, got %d", gateway.verifyCalls)
	}
	if got := ledger.orderStatus("order-1"); got != models.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", got)
	}
}

func TestReconcile_PendingTransactionIsRetryable(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	gateway := &fakeGateway{
		verifyFn: func(reference string) (*paystack.VerifyResult, error) {
			return &paystack.VerifyResult{Succeeded: false, Status: "pending", OrderID: "order-1"}, nil
		},
	}
	engine := newTestEngine(ledger, gateway, &fakeNotifier{})

	res := engine.Reconcile(context.Background(), Event{
		Reference:    "ref-1",
		Source:       SourcePoll,
		CallerUserID: 7,
	})
	if res.Success || res.Reason != ReasonPaymentPending {
		t.Fatalf("expected PaymentPending, got %+v", res)
	}
	if !res.Retryable() {
		t.Fatal("a pending settlement should be retryable")
	}
}

func TestReconcile_GatewayDownIsRetryable(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	gateway := &fakeGateway{
		verifyFn: func(reference string) (*paystack.VerifyResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	engine := newTestEngine(ledger, gateway, &fakeNotifier{})

	res := engine.Reconcile(context.Background(), Event{
		OrderID:      "order-1",
		Reference:    "ref-1",
		Source:       SourcePoll,
		CallerUserID: 7,
	})
	if res.Success || res.Reason != ReasonGatewayUnavailable {
		t.Fatalf("expected GatewayUnavailable, got %+v", res)
	}
	if !res.Retryable() {
		t.Fatal("a gateway outage should be retryable")
	}
}

func TestReconcile_StoreFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	ledger.failTx = true
	notifier := &fakeNotifier{}
	engine := newTestEngine(ledger, &fakeGateway{}, notifier)

	res := engine.Reconcile(context.Background(), Event{
		OrderID:     "order-1",
		Reference:   "ref-1",
		AmountMinor: 500000,
		Source:      SourceWebhook,
	})
	if res.Success || res.Reason != ReasonStoreFailure {
		t.Fatalf("expected StoreFailure, got %+v", res)
	}
	if !res.Retryable() {
		t.Fatal("a store failure should be retryable")
	}
	if notifier.paidCount() != 0 {
		t.Fatalf("no email on a failed commit, got %d", notifier.paidCount())
	}
}

func TestInitiatePayment_RateLimited(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	gateway := &fakeGateway{}
	engine := newTestEngine(ledger, gateway, &fakeNotifier{})
	engine.Limiter = &fakeLimiter{allowed: false}

	_, err := engine.InitiatePayment(context.Background(), 7, "order-1")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if gateway.initCalls != 0 {
		t.Fatalf("gateway must not be called when throttled, got %d", gateway.initCalls)
	}
}

func TestInitiatePayment_LimiterOutageFailsOpen(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
	gateway := &fakeGateway{
		initResult: &paystack.InitializeResult{AuthorizationURL: "https://checkout.example/x", Reference: "ref-1"},
	}
	engine := newTestEngine(ledger, gateway, &fakeNotifier{})
	engine.Limiter = &fakeLimiter{err: errors.New("redis down")}

	result, err := engine.InitiatePayment(context.Background(), 7, "order-1")
	if err != nil {
		t.Fatalf("a broken limiter must not block checkout: %v", err)
	}
	if result.AuthorizationURL == "" {
		t.Fatal("expected authorization url")
	}
}

func TestInitiatePayment_OwnershipAndEligibility(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("unpaid", 7, 5000, models.OrderStatusUnpaid)
	ledger.addOrder("paid", 7, 5000, models.OrderStatusPaid)
	ledger.addOrder("cancelled", 7, 5000, models.OrderStatusCancelled)
	gateway := &fakeGateway{}
	engine := newTestEngine(ledger, gateway, &fakeNotifier{})

	if _, err := engine.InitiatePayment(context.Background(), 99, "unpaid"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := engine.InitiatePayment(context.Background(), 7, "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := engine.InitiatePayment(context.Background(), 7, "cancelled"); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}

	result, err := engine.InitiatePayment(context.Background(), 7, "paid")
	if err != nil || !result.AlreadyPaid {
		t.Fatalf("paid order should short-circuit, got result=%+v err=%v", result, err)
	}
	if gateway.initCalls != 0 {
		t.Fatalf("no gateway call expected, got %d", gateway.initCalls)
	}
}

func TestInitiatePayment_EmbedsOrderIDInMetadata(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
	gateway := &fakeGateway{
		initResult: &paystack.InitializeResult{AuthorizationURL: "https://checkout.example/x", Reference: "ref-1"},
	}
	engine := newTestEngine(ledger, gateway, &fakeNotifier{})

	result, err := engine.InitiatePayment(context.Background(), 7, "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gateway.lastInitOrderID != "order-1" {
		t.Fatalf("order id must travel in metadata, got %q", gateway.lastInitOrderID)
	}
	if gateway.lastInitEmail != "buyer@example.com" {
		t.Fatalf("initialization must use the owner's email, got %q", gateway.lastInitEmail)
	}
	if result.AuthorizationURL != "https://checkout.example/x" || result.Reference != "ref-1" {
		t.Fatalf("gateway response must propagate, got %+v", result)
	}
}

func TestInitiatePayment_GatewayErrorPreservesMessage(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addOrder("order-1", 7, 5000, models.OrderStatusUnpaid)
	ledger.users[7] = &models.User{ID: 7, Email: "buyer@example.com"}
	gateway := &fakeGateway{initErr: errors.New("Invalid key")}
	engine := newTestEngine(ledger, gateway, &fakeNotifier{})

	_, err := engine.InitiatePayment(context.Background(), 7, "order-1")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if want := fmt.Sprintf("%s: Invalid key", ErrGatewayUnavailable.Error()); err.Error() != want {
		t.Fatalf("gateway message must survive: got %q want %q", err.Error(), want)
	}
}
