package store

import (
	"context"
	"sync"

	"lipia/models"
)

// MemoryStore lives for the process lifetime. One RWMutex guards both the
// user map and the transaction list so concurrent requests cannot interleave
// a half-written record.
type MemoryStore struct {
	mutex        sync.RWMutex
	users        map[string]models.User
	transactions []models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]models.User),
	}
}

func (s *MemoryStore) PutUser(_ context.Context, user models.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.users[user.Username] = user
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, username string) (*models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) UserExists(_ context.Context, username string) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	_, ok := s.users[username]
	return ok, nil
}

func (s *MemoryStore) AppendTransaction(_ context.Context, txn models.Transaction) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.transactions = append(s.transactions, txn)
	return nil
}

func (s *MemoryStore) TransactionsByUser(_ context.Context, username string) ([]models.Transaction, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := []models.Transaction{}
	for _, txn := range s.transactions {
		if txn.UserID == username {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, transactionID string) (*models.Transaction, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, txn := range s.transactions {
		if txn.TransactionID == transactionID {
			return &txn, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateTransaction(_ context.Context, transactionID string, status models.TransactionStatus, reference string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.transactions {
		if s.transactions[i].TransactionID != transactionID {
			continue
		}
		s.transactions[i].Status = status
		if reference != "" {
			s.transactions[i].Reference = reference
		}
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.users = make(map[string]models.User)
	s.transactions = nil
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return Stats{
		Users:        int64(len(s.users)),
		Transactions: int64(len(s.transactions)),
	}, nil
}
