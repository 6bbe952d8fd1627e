package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmeshcher/shopledger/internal/apperror"
	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/repository"
)

func startPostgres(t *testing.T) *repository.PostgresRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
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

	repo, err := repository.NewPostgresRepository(
		fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestPlaceOrder_ConcurrentPurchasesOnPostgres(t *testing.T) {
	repo := startPostgres(t)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	buyer, err := svc.SignUp(ctx, SignUpInput{FirstName: "Ann", LastName: "Buyer", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	seller, err := svc.SignUp(ctx, SignUpInput{FirstName: "Sam", LastName: "Seller", Email: "sam@example.com",
		Password: "secret1", Role: model.RoleSalesman})
	require.NoError(t, err)

	_, err = svc.CreateCurrency(ctx, CurrencyInput{Name: "US Dollar", Symbol: "USD", Sign: "$",
		Rate: decimal.NewFromInt(1), Decimals: 2})
	require.NoError(t, err)

	ticket, err := svc.CreateArticle(ctx, ArticleInput{SKU: "TICKET", Title: "Ticket",
		UnitPrice: decimal.NewFromInt(60), IsVirtual: true, IsAvailable: true})
	require.NoError(t, err)

	_, err = svc.RecordSelfDeposit(ctx, buyer.PublicID, decimal.NewFromInt(100))
	require.NoError(t, err)

	t.Run("only one of two purchases passes the balance check", func(t *testing.T) {
		const buyers = 2

		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make([]error, buyers)
		)
		for i := 0; i < buyers; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, errs[i] = svc.PlaceOrder(ctx, PlaceOrderInput{
					BuyerID:    buyer.PublicID,
					ReceiverID: seller.PublicID,
					Lines:      []CartLine{{ArticleID: ticket.PublicID, Quantity: 1}},
				})
			}()
		}
		close(start)
		wg.Wait()

		var ok, rejected int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case apperror.KindOf(err) == apperror.KindBadRequest:
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, rejected)

		balance, err := svc.BalanceOf(ctx, buyer.PublicID)
		require.NoError(t, err)
		assert.True(t, balance.Amount.Equal(decimal.NewFromInt(40)), "balance = %s", balance.Amount)

		orders, err := svc.ListOrders(ctx, buyer.PublicID)
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}
