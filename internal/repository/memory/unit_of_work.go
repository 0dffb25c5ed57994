package memory

import (
	"context"
	"fmt"

	"career-chat-be/internal/repository/contract"
	"career-chat-be/internal/repository/unitofwork"
)

type RepositoryFactory struct {
	store *Store
}

func NewRepositoryFactory(store *Store) unitofwork.RepositoryFactory {
	return &RepositoryFactory{store: store}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork applies writes immediately and keeps undo steps so Rollback can
// revert exactly the rows this unit touched.
type UnitOfWork struct {
	store *Store
	inTx  bool
	undo  []func()
}

func (u *UnitOfWork) record(undo func()) {
	if u.inTx {
		u.undo = append(u.undo, undo)
	}
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return fmt.Errorf("transaction already started")
	}
	u.inTx = true
	u.undo = nil
	return nil
}

func (u *UnitOfWork) Commit() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to commit")
	}
	u.inTx = false
	u.undo = nil
	return nil
}

func (u *UnitOfWork) Rollback() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to rollback")
	}
	u.store.mu.Lock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.store.mu.Unlock()

	u.inTx = false
	u.undo = nil
	return nil
}

func (u *UnitOfWork) UserRepository() contract.UserRepository {
	return &UserRepository{store: u.store, journal: u}
}

func (u *UnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return &ChatSessionRepository{store: u.store, journal: u}
}

func (u *UnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return &ChatMessageRepository{store: u.store, journal: u}
}
