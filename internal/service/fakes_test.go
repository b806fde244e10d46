package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capypay/internal/model"
)

// In-memory fakes implementing the store interfaces. The engines are
// store-agnostic, so the tests exercise the full validation and
// settlement logic without Postgres.

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*model.Account
	xpFail   error
}

func newFakeAccounts(accounts ...*model.Account) *fakeAccounts {
	f := &fakeAccounts{accounts: make(map[uuid.UUID]*model.Account)}
	for _, a := range accounts {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByCedula(_ context.Context, cedula string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Cedula == cedula {
			cp := *a
			return &cp, nil
		}
	}
	return nil, model.ErrAccountNotFound
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, model.ErrAccountNotFound
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return model.ErrEmailTaken
		}
		if existing.Cedula == a.Cedula {
			return model.ErrCedulaTaken
		}
	}
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeAccounts) Search(_ context.Context, q string, limit int) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Account
	for _, a := range f.accounts {
		if len(out) >= limit {
			break
		}
		if a.Cedula == q || a.Name == q {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) UpdatePin(_ context.Context, id uuid.UUID, pinHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	a.PinHash = pinHash
	return nil
}

func (f *fakeAccounts) AwardXP(_ context.Context, id uuid.UUID, xp int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.xpFail != nil {
		return f.xpFail
	}
	a, ok := f.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	a.XP += xp
	return nil
}

func (f *fakeAccounts) TopByXP(_ context.Context, limit int) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Account
	for _, a := range f.accounts {
		out = append(out, *a)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].XP > out[i].XP {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAccounts) FacultyXP(_ context.Context) ([]model.FacultyStanding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byFaculty := map[string]*model.FacultyStanding{}
	var order []string
	for _, a := range f.accounts {
		name := a.Faculty
		if name == "" {
			name = "Sin Facultad"
		}
		s, ok := byFaculty[name]
		if !ok {
			s = &model.FacultyStanding{Name: name}
			byFaculty[name] = s
			order = append(order, name)
		}
		s.XP += a.XP
		s.Members++
	}
	out := make([]model.FacultyStanding, 0, len(order))
	for _, name := range order {
		out = append(out, *byFaculty[name])
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].XP > out[i].XP {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// fakeWallet mutates balances held by fakeAccounts, mirroring the
// single-transaction semantics of the pgx repository.
type fakeWallet struct {
	accounts  *fakeAccounts
	txns      []model.Transaction
	recharges []model.Recharge

	txnErr error
}

func newFakeWallet(accounts *fakeAccounts) *fakeWallet {
	return &fakeWallet{accounts: accounts}
}

func (f *fakeWallet) Recharge(_ context.Context, accountID uuid.UUID, bs, rate, capy decimal.Decimal, method string) (*model.Recharge, decimal.Decimal, error) {
	f.accounts.mu.Lock()
	defer f.accounts.mu.Unlock()
	a, ok := f.accounts.accounts[accountID]
	if !ok {
		return nil, decimal.Zero, model.ErrAccountNotFound
	}
	a.Balance = a.Balance.Add(capy)
	rec := model.Recharge{
		ID:        uuid.New(),
		AccountID: accountID,
		AmountBs:  bs,
		Rate:      rate,
		AmountCpy: capy,
		Method:    method,
		CreatedAt: time.Now(),
	}
	f.recharges = append(f.recharges, rec)
	return &rec, a.Balance, nil
}

func (f *fakeWallet) Transfer(_ context.Context, senderID, receiverID uuid.UUID, amount, comm decimal.Decimal, concept, category string) (*model.Transaction, decimal.Decimal, error) {
	if f.txnErr != nil {
		return nil, decimal.Zero, f.txnErr
	}
	f.accounts.mu.Lock()
	defer f.accounts.mu.Unlock()
	sender, ok := f.accounts.accounts[senderID]
	if !ok {
		return nil, decimal.Zero, model.ErrSenderNotFound
	}
	receiver, ok := f.accounts.accounts[receiverID]
	if !ok {
		return nil, decimal.Zero, model.ErrReceiverNotFound
	}
	total := amount.Add(comm)
	if sender.Balance.LessThan(total) {
		return nil, decimal.Zero, &model.InsufficientFundsError{Required: total, Available: sender.Balance}
	}
	sender.Balance = sender.Balance.Sub(total)
	receiver.Balance = receiver.Balance.Add(amount)
	txn := model.Transaction{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Commission: comm,
		Concept:    concept,
		Category:   category,
		CreatedAt:  time.Now(),
	}
	f.txns = append(f.txns, txn)
	return &txn, sender.Balance, nil
}

func (f *fakeWallet) TransactionsByAccount(_ context.Context, accountID uuid.UUID) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range f.txns {
		if t.SenderID == accountID || t.ReceiverID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeWallet) RechargesByAccount(_ context.Context, accountID uuid.UUID) ([]model.Recharge, error) {
	var out []model.Recharge
	for _, r := range f.recharges {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeRates struct {
	rate decimal.Decimal
	set  bool
}

func (f *fakeRates) Get(_ context.Context) (decimal.Decimal, error) {
	if !f.set {
		return decimal.Zero, model.ErrRateNotSet
	}
	return f.rate, nil
}

func (f *fakeRates) Set(_ context.Context, rate decimal.Decimal) error {
	f.rate = rate
	f.set = true
	return nil
}

type fakeBus struct {
	published [][]byte
	topics    []string
	failErr   error
}

func (f *fakeBus) Publish(topic string, data []byte) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.topics = append(f.topics, topic)
	f.published = append(f.published, data)
	return nil
}

type fakeMenu struct {
	items map[uuid.UUID]*model.MenuItem
}

func newFakeMenu(items ...*model.MenuItem) *fakeMenu {
	f := &fakeMenu{items: make(map[uuid.UUID]*model.MenuItem)}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return f
}

func (f *fakeMenu) ListAvailable(_ context.Context, category string) ([]model.MenuItem, error) {
	var out []model.MenuItem
	for _, it := range f.items {
		if !it.Available {
			continue
		}
		if category != "" && it.Category != category {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

func (f *fakeMenu) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.MenuItem, error) {
	var out []model.MenuItem
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out, nil
}

// fakeOrders settles against fakeAccounts/fakeMenu with all-or-nothing
// semantics, like the store procedure.
type fakeOrders struct {
	accounts *fakeAccounts
	menu     *fakeMenu
	orders   []model.Order

	settleErr error
	listErr   error
	countErr  error
}

func newFakeOrders(accounts *fakeAccounts, menu *fakeMenu) *fakeOrders {
	return &fakeOrders{accounts: accounts, menu: menu}
}

func (f *fakeOrders) Settle(_ context.Context, s model.Settlement) (uuid.UUID, decimal.Decimal, error) {
	if f.settleErr != nil {
		return uuid.Nil, decimal.Zero, f.settleErr
	}
	f.accounts.mu.Lock()
	defer f.accounts.mu.Unlock()
	a, ok := f.accounts.accounts[s.AccountID]
	if !ok {
		return uuid.Nil, decimal.Zero, model.ErrAccountNotFound
	}
	if a.Balance.LessThan(s.Total) {
		return uuid.Nil, decimal.Zero, &model.InsufficientFundsError{Required: s.Total, Available: a.Balance}
	}
	for _, line := range s.Lines {
		item, ok := f.menu.items[line.MenuItemID]
		if !ok {
			return uuid.Nil, decimal.Zero, &model.ItemNotFoundError{ItemID: line.MenuItemID}
		}
		if item.Stock < line.Quantity {
			return uuid.Nil, decimal.Zero, &model.StockError{ItemName: item.Name, Requested: line.Quantity, Stock: item.Stock}
		}
	}
	for _, line := range s.Lines {
		item := f.menu.items[line.MenuItemID]
		item.Stock -= line.Quantity
		item.Sales += int64(line.Quantity)
	}
	a.Balance = a.Balance.Sub(s.Total)
	a.XP += s.XP
	a.Points += s.Points
	order := model.Order{
		ID:        uuid.New(),
		AccountID: s.AccountID,
		Total:     s.Total,
		Status:    model.OrderPreparing,
		Lines:     s.Lines,
		CreatedAt: time.Now(),
	}
	f.orders = append(f.orders, order)
	return order.ID, a.Balance, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, id uuid.UUID) (*model.Order, error) {
	for i := range f.orders {
		if f.orders[i].ID == id {
			cp := f.orders[i]
			return &cp, nil
		}
	}
	return nil, model.ErrOrderNotFound
}

func (f *fakeOrders) ListByAccount(_ context.Context, accountID uuid.UUID) ([]model.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Order
	for _, o := range f.orders {
		if o.AccountID == accountID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) Complete(_ context.Context, id uuid.UUID) error {
	for i := range f.orders {
		if f.orders[i].ID == id && f.orders[i].Status == model.OrderPreparing {
			now := time.Now()
			f.orders[i].Status = model.OrderCompleted
			f.orders[i].CompletedAt = &now
			return nil
		}
	}
	return model.ErrOrderNotFound
}

func (f *fakeOrders) CountByStatus(_ context.Context, status string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, o := range f.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

var errCacheMiss = errors.New("cache miss")

type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dest any) error {
	data, ok := f.entries[key]
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = data
	return nil
}

type fakeSessions struct {
	tokens map[string]uuid.UUID
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]uuid.UUID)}
}

func (f *fakeSessions) Create(_ context.Context, accountID uuid.UUID) (string, error) {
	token := uuid.NewString()
	f.tokens[token] = accountID
	return token, nil
}

func (f *fakeSessions) Resolve(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := f.tokens[token]
	if !ok {
		return uuid.Nil, errors.New("session not found")
	}
	return id, nil
}
