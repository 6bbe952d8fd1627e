package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/repository"
)

type fakeTxKey struct{}

type fakeState struct {
	users        []model.User
	currencies   []model.Currency
	transactions []model.Transaction
	articles     []model.Article
	orders       []model.Order
	deletedUsers []int64
	nextID       int64
}

func (st fakeState) clone() fakeState {
	c := fakeState{
		users:        slices.Clone(st.users),
		currencies:   slices.Clone(st.currencies),
		transactions: slices.Clone(st.transactions),
		articles:     slices.Clone(st.articles),
		orders:       make([]model.Order, len(st.orders)),
		deletedUsers: slices.Clone(st.deletedUsers),
		nextID:       st.nextID,
	}
	for i, o := range st.orders {
		o.Details = slices.Clone(o.Details)
		c.orders[i] = o
	}
	return c
}

// fakeRepo хранит данные в памяти; InTx откатывает состояние при ошибке.
type fakeRepo struct {
	mu sync.Mutex
	fakeState

	createOrderErr       error
	createTransactionErr error
	commitErr            error
	txCount              int

	// вызываются перед записью, чтобы вклинить параллельную операцию
	beforeArticleUpdate     func()
	beforeOrderStatusUpdate func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func inFakeTx(ctx context.Context) bool {
	_, ok := ctx.Value(fakeTxKey{}).(bool)
	return ok
}

func (f *fakeRepo) Close() error { return nil }

func (f *fakeRepo) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inFakeTx(ctx) {
		return fn(ctx)
	}

	f.mu.Lock()
	snapshot := f.fakeState.clone()
	f.txCount++
	f.mu.Unlock()

	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.mu.Lock()
		f.fakeState = snapshot
		f.mu.Unlock()
		return err
	}

	if f.commitErr != nil {
		return fmt.Errorf("%w: %w", repository.ErrCommit, f.commitErr)
	}
	return nil
}

func (f *fakeRepo) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrUserExists
		}
	}
	u.ID = f.id()
	u.CreatedAt = time.Now()
	f.users = append(f.users, *u)
	return nil
}

func (f *fakeRepo) findUser(match func(model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) && !slices.Contains(f.deletedUsers, u.ID) {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeRepo) UpdateUser(_ context.Context, publicID string, upd repository.UserUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := slices.IndexFunc(f.users, func(u model.User) bool {
		return u.PublicID == publicID && !slices.Contains(f.deletedUsers, u.ID)
	})
	if idx < 0 {
		return nil, repository.ErrUserNotFound
	}
	if upd.Email != nil {
		for i, other := range f.users {
			if i != idx && other.Email == *upd.Email {
				return nil, repository.ErrUserExists
			}
		}
	}
	u := &f.users[idx]
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = upd.PasswordHash
	}
	res := *u
	return &res, nil
}

func (f *fakeRepo) SoftDeleteUser(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PublicID == publicID && !slices.Contains(f.deletedUsers, u.ID) {
			f.deletedUsers = append(f.deletedUsers, u.ID)
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return f.findUser(func(u model.User) bool { return u.Email == email })
}

func (f *fakeRepo) GetUserByPublicID(_ context.Context, publicID string) (*model.User, error) {
	return f.findUser(func(u model.User) bool { return u.PublicID == publicID })
}

func (f *fakeRepo) LockUser(ctx context.Context, publicID string) (*model.User, error) {
	if !inFakeTx(ctx) {
		return nil, repository.ErrNoTx
	}
	return f.GetUserByPublicID(ctx, publicID)
}

func (f *fakeRepo) CreateCurrency(_ context.Context, c *model.Currency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.currencies {
		if existing.Symbol == c.Symbol {
			return repository.ErrCurrencyExists
		}
	}
	c.ID = f.id()
	c.IsDefault = false
	f.currencies = append(f.currencies, *c)
	return nil
}

func (f *fakeRepo) GetCurrencyByPublicID(_ context.Context, publicID string) (*model.Currency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.currencies {
		if c.PublicID == publicID {
			return &c, nil
		}
	}
	return nil, repository.ErrCurrencyNotFound
}

func (f *fakeRepo) ListCurrencies(_ context.Context) ([]model.Currency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.currencies), nil
}

func (f *fakeRepo) ListDefaultCurrencies(_ context.Context) ([]model.Currency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.Currency
	for _, c := range f.currencies {
		if c.IsDefault {
			res = append(res, c)
		}
	}
	return res, nil
}

func (f *fakeRepo) LockCurrencies(ctx context.Context) ([]model.Currency, error) {
	if !inFakeTx(ctx) {
		return nil, repository.ErrNoTx
	}
	return f.ListCurrencies(ctx)
}

func (f *fakeRepo) UpdateCurrencyRates(_ context.Context, updates []repository.CurrencyRate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range updates {
		idx := slices.IndexFunc(f.currencies, func(c model.Currency) bool { return c.ID == u.ID })
		if idx < 0 {
			return repository.ErrCurrencyNotFound
		}
		if u.IsDefault {
			for _, c := range f.currencies {
				if c.IsDefault && c.ID != u.ID {
					return errors.New("duplicate key value violates unique constraint currencies_single_default")
				}
			}
		}
		f.currencies[idx].Rate = u.Rate
		f.currencies[idx].IsDefault = u.IsDefault
	}
	return nil
}

func (f *fakeRepo) CreateTransaction(_ context.Context, t *model.Transaction) error {
	if f.createTransactionErr != nil {
		return f.createTransactionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.id()
	t.CreatedAt = time.Now()
	f.transactions = append(f.transactions, *t)
	return nil
}

func (f *fakeRepo) filterTransactions(match func(model.Transaction) bool) []model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.Transaction
	for _, t := range f.transactions {
		if match(t) {
			res = append(res, t)
		}
	}
	return res
}

func (f *fakeRepo) ListTransactionsByUser(_ context.Context, userID int64) ([]model.Transaction, error) {
	return f.filterTransactions(func(t model.Transaction) bool { return t.UserID == userID }), nil
}

func (f *fakeRepo) ListTransactionsByReceiver(_ context.Context, receiverID int64) ([]model.Transaction, error) {
	return f.filterTransactions(func(t model.Transaction) bool { return t.ReceiverID == receiverID }), nil
}

func (f *fakeRepo) GetTransactionByPublicID(_ context.Context, publicID string) (*model.Transaction, error) {
	res := f.filterTransactions(func(t model.Transaction) bool { return t.PublicID == publicID })
	if len(res) == 0 {
		return nil, repository.ErrTransactionNotFound
	}
	return &res[0], nil
}

func (f *fakeRepo) LockTransaction(ctx context.Context, publicID string) (*model.Transaction, error) {
	if !inFakeTx(ctx) {
		return nil, repository.ErrNoTx
	}
	return f.GetTransactionByPublicID(ctx, publicID)
}

func (f *fakeRepo) UpdateTransactionStatus(_ context.Context, id int64, status model.TransactionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.transactions {
		if f.transactions[i].ID == id {
			f.transactions[i].Status = status
			return nil
		}
	}
	return repository.ErrTransactionNotFound
}

func (f *fakeRepo) CreateArticle(_ context.Context, a *model.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.articles {
		if existing.SKU == a.SKU {
			return repository.ErrArticleExists
		}
	}
	a.ID = f.id()
	f.articles = append(f.articles, *a)
	return nil
}

func (f *fakeRepo) GetArticleByPublicID(_ context.Context, publicID string) (*model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.PublicID == publicID && !a.IsDeleted {
			return &a, nil
		}
	}
	return nil, repository.ErrArticleNotFound
}

func (f *fakeRepo) ListArticles(_ context.Context) ([]model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.Article
	for _, a := range f.articles {
		if !a.IsDeleted {
			res = append(res, a)
		}
	}
	return res, nil
}

func (f *fakeRepo) LockArticlesByPublicIDs(ctx context.Context, publicIDs []string) ([]model.Article, error) {
	if !inFakeTx(ctx) {
		return nil, repository.ErrNoTx
	}
	all, _ := f.ListArticles(ctx)
	var res []model.Article
	for _, a := range all {
		if slices.Contains(publicIDs, a.PublicID) {
			res = append(res, a)
		}
	}
	return res, nil
}

func (f *fakeRepo) UpdateArticle(_ context.Context, publicID string, upd repository.ArticleUpdate) (*model.Article, error) {
	if f.beforeArticleUpdate != nil {
		f.beforeArticleUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		a := &f.articles[i]
		if a.PublicID != publicID || a.IsDeleted {
			continue
		}
		if upd.Title != nil {
			a.Title = *upd.Title
		}
		if upd.ShortDescription != nil {
			a.ShortDescription = *upd.ShortDescription
		}
		if upd.Unity != nil {
			a.Unity = *upd.Unity
		}
		if upd.QtyStock != nil {
			a.QtyStock = *upd.QtyStock
		}
		if upd.UnitPrice != nil {
			a.UnitPrice = *upd.UnitPrice
		}
		if upd.IsVirtual != nil {
			a.IsVirtual = *upd.IsVirtual
		}
		if upd.IsAvailable != nil {
			a.IsAvailable = *upd.IsAvailable
		}
		res := *a
		return &res, nil
	}
	return nil, repository.ErrArticleNotFound
}

func (f *fakeRepo) SoftDeleteArticle(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].PublicID == publicID && !f.articles[i].IsDeleted {
			f.articles[i].IsDeleted = true
			f.articles[i].IsAvailable = false
			return nil
		}
	}
	return repository.ErrArticleNotFound
}

func (f *fakeRepo) DecrementStock(_ context.Context, articleID, qty int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].ID == articleID {
			if f.articles[i].QtyStock < qty {
				return repository.ErrInsufficientStock
			}
			f.articles[i].QtyStock -= qty
			return nil
		}
	}
	return repository.ErrArticleNotFound
}

func (f *fakeRepo) CreateOrder(_ context.Context, o *model.Order) error {
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o.ID = f.id()
	o.CreatedAt = time.Now()
	stored := *o
	stored.Details = slices.Clone(o.Details)
	f.orders = append(f.orders, stored)
	return nil
}

func (f *fakeRepo) GetOrderByTrackingNumber(_ context.Context, trackingNumber string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.TrackingNumber == trackingNumber {
			return &o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (f *fakeRepo) ListOrdersByUser(_ context.Context, userID int64) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			res = append(res, o)
		}
	}
	return res, nil
}

func (f *fakeRepo) UpdateOrderStatus(_ context.Context, id int64, from, to model.OrderStatus) error {
	if f.beforeOrderStatusUpdate != nil {
		f.beforeOrderStatusUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			if f.orders[i].Status != from {
				return repository.ErrOrderStatusChanged
			}
			f.orders[i].Status = to
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

// seedUser добавляет пользователя напрямую в хранилище.
func (f *fakeRepo) seedUser(publicID string, role model.Role) model.User {
	u := model.User{
		PublicID:    publicID,
		FirstName:   "Test",
		LastName:    publicID,
		Email:       publicID + "@example.com",
		Role:        role,
		SecureToken: "token-" + publicID,
	}
	_ = f.CreateUser(context.Background(), &u)
	return u
}

func (f *fakeRepo) seedCurrency(symbol string, rate string, isDefault bool) model.Currency {
	c := model.Currency{
		PublicID: "cur-" + symbol,
		Name:     symbol,
		Symbol:   symbol,
		Rate:     decimal.RequireFromString(rate),
		Decimals: 2,
		Sign:     "$",
	}
	_ = f.CreateCurrency(context.Background(), &c)
	if isDefault {
		f.mu.Lock()
		f.currencies[len(f.currencies)-1].IsDefault = true
		c.IsDefault = true
		f.mu.Unlock()
	}
	return c
}

func (f *fakeRepo) seedArticle(publicID string, price string, stock int64, currencyID int64) model.Article {
	a := model.Article{
		PublicID:    publicID,
		SKU:         "SKU-" + publicID,
		Title:       publicID,
		Unity:       "ea",
		QtyStock:    stock,
		UnitPrice:   decimal.RequireFromString(price),
		CurrencyID:  currencyID,
		IsAvailable: true,
	}
	_ = f.CreateArticle(context.Background(), &a)
	return a
}

func (f *fakeRepo) seedDeposit(u model.User, amount string, currencyID int64) {
	_ = f.CreateTransaction(context.Background(), &model.Transaction{
		PublicID:         "dep-" + u.PublicID + amount,
		UserID:           u.ID,
		UserPublicID:     u.PublicID,
		ReceiverID:       u.ID,
		ReceiverPublicID: u.PublicID,
		Amount:           decimal.RequireFromString(amount),
		CurrencyID:       currencyID,
		Status:           model.TransactionStatusPaid,
		Entry:            model.EntryDebit,
	})
}
