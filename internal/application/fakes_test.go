package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

type fakeOrders struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]domain.Order
	calls struct {
		settles int
	}
}

func newFakeOrders(orders ...domain.Order) *fakeOrders {
	f := &fakeOrders{byID: map[uuid.UUID]domain.Order{}}
	for _, o := range orders {
		f.byID[o.OrderID] = o
	}
	return f
}

func (f *fakeOrders) GetByID(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) GetByCode(_ context.Context, orderCode string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.OrderCode == orderCode {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

func (f *fakeOrders) GetVerifiedByTransactionHash(_ context.Context, txHash string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.TransactionHash == txHash && o.PaymentStatus == domain.PaymentStatusVerified {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

func (f *fakeOrders) ListRecentPending(_ context.Context, paymentMethod string, limit int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []domain.Order
	for _, o := range f.byID {
		if o.PaymentMethod == paymentMethod && o.PaymentStatus == domain.PaymentStatusPending {
			pending = append(pending, o)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *fakeOrders) Settle(_ context.Context, params ports.SettleParams) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.settles++
	o, ok := f.byID[params.OrderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if o.PaymentStatus == domain.PaymentStatusVerified {
		return domain.Order{}, domain.ErrAlreadySettled
	}
	o.Status = domain.OrderStatusPaid
	o.PaymentStatus = domain.PaymentStatusVerified
	o.TransactionHash = params.TransactionHash
	paidAt := params.PaidAt
	verifiedAt := params.VerifiedAt
	o.PaidAt = &paidAt
	o.VerifiedAt = &verifiedAt
	o.UpdatedAt = params.VerifiedAt
	f.byID[params.OrderID] = o
	return o, nil
}

func (f *fakeOrders) AssignLot(_ context.Context, orderID uuid.UUID, lotID string, at time.Time) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	o.LotID = lotID
	o.UpdatedAt = at
	f.byID[orderID] = o
	return o, nil
}

func (f *fakeOrders) List(_ context.Context, filter ports.OrderFilter) ([]domain.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.byID {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentMethod != "" && o.PaymentMethod != filter.PaymentMethod {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) ListByBuyer(_ context.Context, buyerID uuid.UUID, _, _ int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.byID {
		if o.BuyerID != nil && *o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListLotAssignments(_ context.Context, _, _ int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.byID {
		if o.LotID != "" {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeTreeCodes struct {
	mu           sync.Mutex
	seq          int
	codes        []domain.TreeCode
	failCreates  int
	createErrors int
}

func (f *fakeTreeCodes) NextSequence(_ context.Context, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq, nil
}

func (f *fakeTreeCodes) Create(_ context.Context, code domain.TreeCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreates > 0 {
		f.failCreates--
		f.createErrors++
		return fmt.Errorf("simulated create failure")
	}
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeTreeCodes) ListByOrder(_ context.Context, orderID uuid.UUID) ([]domain.TreeCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TreeCode
	for _, c := range f.codes {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeTreeCodes) CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	codes, err := f.ListByOrder(ctx, orderID)
	return len(codes), err
}

type fakeContracts struct {
	mu      sync.Mutex
	records map[string]domain.ContractRecord
}

func newFakeContracts() *fakeContracts {
	return &fakeContracts{records: map[string]domain.ContractRecord{}}
}

func (f *fakeContracts) Upsert(_ context.Context, record domain.ContractRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.OrderCode] = record
	return nil
}

func (f *fakeContracts) GetByOrderCode(_ context.Context, orderCode string) (domain.ContractRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[orderCode]
	if !ok {
		return domain.ContractRecord{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeContracts) SetEmailReceipt(_ context.Context, orderCode, messageID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[orderCode]
	if !ok {
		return domain.ErrNotFound
	}
	r.EmailMessageID = &messageID
	r.EmailedAt = &at
	f.records[orderCode] = r
	return nil
}

type fakeChain struct {
	receipts map[string]ports.ChainReceipt
	decimals int
}

func (f *fakeChain) TransactionReceipt(_ context.Context, txHash string) (ports.ChainReceipt, error) {
	r, ok := f.receipts[txHash]
	if !ok {
		return ports.ChainReceipt{}, domain.ErrTransactionNotFound
	}
	return r, nil
}

func (f *fakeChain) TokenDecimals() int { return f.decimals }

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = body
	return "https://store.test/" + key, nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return body, nil
}

type fakeEmail struct {
	mu      sync.Mutex
	enabled bool
	sendErr error
	sent    []ports.EmailMessage
}

func (f *fakeEmail) Enabled() bool { return f.enabled }

func (f *fakeEmail) Send(_ context.Context, msg ports.EmailMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

type fakeRenderer struct {
	renderErr error
}

func (f *fakeRenderer) Render(data domain.ContractData) ([]byte, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return []byte("pdf:" + data.OrderCode), nil
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]bool
	deny bool
}

func newFakeLock() *fakeLock { return &fakeLock{held: map[string]bool{}} }

func (f *fakeLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny || f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

type testEnv struct {
	svc       *Service
	orders    *fakeOrders
	treeCodes *fakeTreeCodes
	contracts *fakeContracts
	chain     *fakeChain
	store     *fakeStore
	email     *fakeEmail
	lock      *fakeLock
}

func newTestEnv(orders ...domain.Order) *testEnv {
	env := &testEnv{
		orders:    newFakeOrders(orders...),
		treeCodes: &fakeTreeCodes{},
		contracts: newFakeContracts(),
		chain:     &fakeChain{receipts: map[string]ports.ChainReceipt{}, decimals: 18},
		store:     newFakeStore(),
		email:     &fakeEmail{enabled: true},
		lock:      newFakeLock(),
	}
	env.svc = NewService(Dependencies{
		Config: Config{
			Env:             "test",
			WorkspaceID:     "ws-test",
			ReceivingWallet: "0x9f8e7d6c5b4a39281706f5e4d3c2b1a098765432",
			TokenAddress:    "0x55d398326f99059ff775485246999027b3197955",
			Network:         "bsc",
			VNDPerUSDT:      26000,
		},
		Orders:    env.orders,
		TreeCodes: env.treeCodes,
		Contracts: env.contracts,
		Chain:     env.chain,
		Store:     env.store,
		Email:     env.email,
		Renderer:  &fakeRenderer{},
		Lock:      env.lock,
	})
	// Collapse retry backoff so failure-path tests stay fast.
	env.svc.sleepFn = func(context.Context, time.Duration) error { return nil }
	return env
}

func pendingBankOrder(code string, amount float64, quantity int) domain.Order {
	return domain.Order{
		OrderID:       uuid.New(),
		OrderCode:     code,
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodBankTransfer,
		PaymentStatus: domain.PaymentStatusPending,
		TotalAmount:   amount,
		Quantity:      quantity,
		BuyerName:     "Nguyen Van A",
		BuyerEmail:    "buyer@example.com",
		CreatedAt:     time.Now().UTC(),
	}
}

func pendingUSDTOrder(code string, amountVND float64, quantity int) domain.Order {
	o := pendingBankOrder(code, amountVND, quantity)
	o.PaymentMethod = domain.PaymentMethodUSDT
	return o
}
