package repositories

import (
	"context"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	apperrors "github.com/mufasadev/transaction-webhooks/internal/errors"
	"sync"
	"time"
)

// TransactionMemoryRepository keeps transactions in a map. It is safe for
// concurrent use and returns copies, never its own records.
type TransactionMemoryRepository struct {
	mu           sync.RWMutex
	transactions map[string]models.Transaction
}

func NewTransactionMemoryRepository() *TransactionMemoryRepository {
	return &TransactionMemoryRepository{
		transactions: make(map[string]models.Transaction),
	}
}

func (m *TransactionMemoryRepository) CreateIfAbsent(_ context.Context, tx *models.Transaction) (models.Transaction, repositories.CreateOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.transactions[tx.TransactionID]; ok {
		return clone(existing), repositories.AlreadyExists, nil
	}

	row := newRow(tx)
	m.transactions[row.TransactionID] = row
	return clone(row), repositories.Created, nil
}

func (m *TransactionMemoryRepository) Get(_ context.Context, transactionID string) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[transactionID]
	if !ok {
		return nil, apperrors.NewNotFoundError(transactionID)
	}
	c := clone(tx)
	return &c, nil
}

func (m *TransactionMemoryRepository) MarkProcessed(_ context.Context, transactionID string, processedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[transactionID]
	if !ok {
		return false, apperrors.NewNotFoundError(transactionID)
	}
	if tx.IsProcessed() {
		return false, nil
	}

	p := processedAt.UTC()
	tx.Status = models.StatusProcessed
	tx.ProcessedAt = &p
	tx.Attempts++
	m.transactions[transactionID] = tx
	return true, nil
}

func (m *TransactionMemoryRepository) RecordFailure(_ context.Context, transactionID string, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[transactionID]
	if !ok {
		return apperrors.NewNotFoundError(transactionID)
	}

	tx.Attempts++
	tx.LastError = &errText
	m.transactions[transactionID] = tx
	return nil
}

func (m *TransactionMemoryRepository) CountPendingOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, tx := range m.transactions {
		if !tx.IsProcessed() && tx.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

var _ repositories.TransactionRepository = (*TransactionMemoryRepository)(nil)
