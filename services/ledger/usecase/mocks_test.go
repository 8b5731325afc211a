package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/finvero/ledgercore/internal/pkg/models"
)

type mockLedgerRepo struct {
	mock.Mock
}

func (m *mockLedgerRepo) ExecuteLedgerTransaction(ctx context.Context, txn *models.FinancialTransaction) (map[string]decimal.Decimal, map[string]decimal.Decimal, error) {
	args := m.Called(ctx, txn)
	var before, after map[string]decimal.Decimal
	if args.Get(0) != nil {
		before = args.Get(0).(map[string]decimal.Decimal)
	}
	if args.Get(1) != nil {
		after = args.Get(1).(map[string]decimal.Decimal)
	}
	return before, after, args.Error(2)
}

func (m *mockLedgerRepo) RecordFailedTransaction(ctx context.Context, txn *models.FinancialTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *mockLedgerRepo) GetTransactionByID(ctx context.Context, id string) (*models.FinancialTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FinancialTransaction), args.Error(1)
}

func (m *mockLedgerRepo) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*models.FinancialTransaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FinancialTransaction), args.Error(1)
}

func (m *mockLedgerRepo) GetAccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]models.FinancialTransaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FinancialTransaction), args.Error(1)
}

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) CreateAccount(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepo) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountRepo) UpdateAccountOwner(ctx context.Context, id string, expectedVersion int64, ownerID string) error {
	args := m.Called(ctx, id, expectedVersion, ownerID)
	return args.Error(0)
}

type mockAccountCache struct {
	mock.Mock
}

func (m *mockAccountCache) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountCache) SetAccount(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountCache) InvalidateAccount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockLedgerGW struct {
	mock.Mock
}

func (m *mockLedgerGW) PublishTransactionEvent(ctx context.Context, event *models.TransactionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockPaymentGW struct {
	mock.Mock
}

func (m *mockPaymentGW) InitiatePayment(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InitiatePaymentResponse), args.Error(1)
}

func (m *mockPaymentGW) VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerifyPaymentResponse), args.Error(1)
}
