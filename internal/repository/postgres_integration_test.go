package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmeshcher/shopledger/internal/model"
)

func startPostgres(t *testing.T) *PostgresRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "shop",
			"POSTGRES_PASSWORD": "shop",
			"POSTGRES_DB":       "shop",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port())

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func seedUser(t *testing.T, repo *PostgresRepository, id, email string) *model.User {
	t.Helper()
	u := &model.User{
		PublicID:     id,
		FirstName:    "Test",
		LastName:     id,
		Email:        email,
		PasswordHash: []byte("hash"),
		Role:         model.RoleCustomer,
		SecureToken:  "token-" + id,
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestPostgresRepository_Integration(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	buyer := seedUser(t, repo, "buyer000000000000001", "buyer@example.com")
	seller := seedUser(t, repo, "seller00000000000001", "seller@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		dup := &model.User{PublicID: "dup00000000000000001", Email: "buyer@example.com",
			PasswordHash: []byte("x"), Role: model.RoleCustomer, SecureToken: "token-dup"}
		err := repo.CreateUser(ctx, dup)
		assert.ErrorIs(t, err, ErrUserExists)
	})

	usd := &model.Currency{PublicID: "usd00000000000000001", Name: "US Dollar", Symbol: "USD",
		Rate: decimal.NewFromInt(1), Decimals: 2, Sign: "$"}
	require.NoError(t, repo.CreateCurrency(ctx, usd))
	eur := &model.Currency{PublicID: "eur00000000000000001", Name: "Euro", Symbol: "EUR",
		Rate: decimal.RequireFromString("0.9"), Decimals: 2, Sign: "€"}
	require.NoError(t, repo.CreateCurrency(ctx, eur))

	t.Run("single default currency", func(t *testing.T) {
		err := repo.InTx(ctx, func(ctx context.Context) error {
			return repo.UpdateCurrencyRates(ctx, []CurrencyRate{{ID: usd.ID, Rate: decimal.NewFromInt(1), IsDefault: true}})
		})
		require.NoError(t, err)

		// вторая валюта по умолчанию нарушает частичный уникальный индекс
		err = repo.InTx(ctx, func(ctx context.Context) error {
			return repo.UpdateCurrencyRates(ctx, []CurrencyRate{{ID: eur.ID, Rate: eur.Rate, IsDefault: true}})
		})
		assert.Error(t, err)

		defaults, err := repo.ListDefaultCurrencies(ctx)
		require.NoError(t, err)
		require.Len(t, defaults, 1)
		assert.Equal(t, "USD", defaults[0].Symbol)
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := repo.InTx(ctx, func(ctx context.Context) error {
			tr := &model.Transaction{PublicID: "rollback000000000001", UserID: buyer.ID, ReceiverID: buyer.ID,
				Amount: decimal.NewFromInt(5), CurrencyID: usd.ID,
				Status: model.TransactionStatusPaid, Entry: model.EntryDebit}
			if err := repo.CreateTransaction(ctx, tr); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = repo.GetTransactionByPublicID(ctx, "rollback000000000001")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("lock outside tx", func(t *testing.T) {
		_, err := repo.LockUser(ctx, buyer.PublicID)
		assert.ErrorIs(t, err, ErrNoTx)
	})

	article := &model.Article{PublicID: "article0000000000001", SKU: "SKU-1", Title: "Book", Unity: "ea",
		QtyStock: 2, UnitPrice: decimal.RequireFromString("10.50"), CurrencyID: usd.ID, IsAvailable: true}
	require.NoError(t, repo.CreateArticle(ctx, article))

	t.Run("order with details", func(t *testing.T) {
		err := repo.InTx(ctx, func(ctx context.Context) error {
			if _, err := repo.LockUser(ctx, buyer.PublicID); err != nil {
				return err
			}
			locked, err := repo.LockArticlesByPublicIDs(ctx, []string{article.PublicID, "missing"})
			if err != nil {
				return err
			}
			require.Len(t, locked, 1)

			tr := &model.Transaction{PublicID: "order-tx000000000001", UserID: buyer.ID, ReceiverID: seller.ID,
				Amount: decimal.NewFromInt(21), CurrencyID: usd.ID,
				Status: model.TransactionStatusPending, Entry: model.EntryCredit}
			if err := repo.CreateTransaction(ctx, tr); err != nil {
				return err
			}

			o := &model.Order{TrackingNumber: "track000000000000001", TransactionID: tr.ID, UserID: buyer.ID,
				ReceiverID: seller.ID, CurrencyID: usd.ID, CurrencyRate: decimal.NewFromInt(1),
				Total: decimal.NewFromInt(21), Status: model.OrderStatusCompleted,
				Details: []model.OrderDetail{{ArticleID: article.ID, UnitPrice: article.UnitPrice, Quantity: 2}}}
			if err := repo.CreateOrder(ctx, o); err != nil {
				return err
			}
			return repo.DecrementStock(ctx, article.ID, 2)
		})
		require.NoError(t, err)

		o, err := repo.GetOrderByTrackingNumber(ctx, "track000000000000001")
		require.NoError(t, err)
		assert.Equal(t, seller.PublicID, o.ReceiverPublicID)
		assert.Equal(t, "order-tx000000000001", o.TransactionPublicID)
		require.Len(t, o.Details, 1)
		assert.Equal(t, article.PublicID, o.Details[0].ArticlePublicID)
		assert.True(t, o.Details[0].UnitPrice.Equal(decimal.RequireFromString("10.50")))

		orders, err := repo.ListOrdersByUser(ctx, buyer.ID)
		require.NoError(t, err)
		assert.Len(t, orders, 1)

		err = repo.DecrementStock(ctx, article.ID, 1)
		assert.ErrorIs(t, err, ErrInsufficientStock)

		credits, err := repo.ListTransactionsByReceiver(ctx, seller.ID)
		require.NoError(t, err)
		require.Len(t, credits, 1)
		assert.Equal(t, buyer.PublicID, credits[0].UserPublicID)
		assert.Equal(t, model.EntryCredit, credits[0].Entry)
	})

	t.Run("article update writes only given fields", func(t *testing.T) {
		title := "Hardcover Book"
		updated, err := repo.UpdateArticle(ctx, article.PublicID, ArticleUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Hardcover Book", updated.Title)
		assert.Equal(t, int64(0), updated.QtyStock, "stock taken by the order stays taken")
		assert.True(t, updated.UnitPrice.Equal(decimal.RequireFromString("10.50")))

		restock := int64(4)
		updated, err = repo.UpdateArticle(ctx, article.PublicID, ArticleUpdate{QtyStock: &restock})
		require.NoError(t, err)
		assert.Equal(t, int64(4), updated.QtyStock)
		assert.Equal(t, "Hardcover Book", updated.Title)

		_, err = repo.UpdateArticle(ctx, "missing", ArticleUpdate{Title: &title})
		assert.ErrorIs(t, err, ErrArticleNotFound)
	})

	t.Run("order status transition is conditional", func(t *testing.T) {
		o, err := repo.GetOrderByTrackingNumber(ctx, "track000000000000001")
		require.NoError(t, err)

		require.NoError(t, repo.UpdateOrderStatus(ctx, o.ID, model.OrderStatusCompleted, model.OrderStatusCancelled))
		err = repo.UpdateOrderStatus(ctx, o.ID, model.OrderStatusCompleted, model.OrderStatusCancelled)
		assert.ErrorIs(t, err, ErrOrderStatusChanged)
	})

	t.Run("user update and soft delete", func(t *testing.T) {
		u := seedUser(t, repo, "leaver00000000000001", "leaver@example.com")

		taken := "buyer@example.com"
		_, err := repo.UpdateUser(ctx, u.PublicID, UserUpdate{Email: &taken})
		assert.ErrorIs(t, err, ErrUserExists)

		name := "Renamed"
		updated, err := repo.UpdateUser(ctx, u.PublicID, UserUpdate{FirstName: &name})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.FirstName)
		assert.Equal(t, "leaver@example.com", updated.Email)
		assert.Equal(t, []byte("hash"), updated.PasswordHash)

		require.NoError(t, repo.SoftDeleteUser(ctx, u.PublicID))
		_, err = repo.GetUserByPublicID(ctx, u.PublicID)
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.GetUserByEmail(ctx, "leaver@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, repo.SoftDeleteUser(ctx, u.PublicID), ErrUserNotFound)
	})

	t.Run("soft delete hides article", func(t *testing.T) {
		require.NoError(t, repo.SoftDeleteArticle(ctx, article.PublicID))
		_, err := repo.GetArticleByPublicID(ctx, article.PublicID)
		assert.ErrorIs(t, err, ErrArticleNotFound)

		o, err := repo.GetOrderByTrackingNumber(ctx, "track000000000000001")
		require.NoError(t, err)
		assert.Len(t, o.Details, 1)
	})
}
