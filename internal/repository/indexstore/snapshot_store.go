// Package indexstore persists vector index snapshots in Postgres (pgvector).
package indexstore

import (
	"context"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type SnapshotStore struct {
	factory unitofwork.RepositoryFactory
}

func NewSnapshotStore(factory unitofwork.RepositoryFactory) *SnapshotStore {
	return &SnapshotStore{factory: factory}
}

// Replace swaps all of a vendor's rows in one transaction.
func (s *SnapshotStore) Replace(ctx context.Context, vendorID uuid.UUID, chunks []*entity.DocumentChunk) error {
	return s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		repo := uow.DocumentChunkRepository()
		if err := repo.DeleteByVendorId(ctx, vendorID); err != nil {
			return err
		}
		return repo.CreateBulk(ctx, chunks)
	})
}

func (s *SnapshotStore) ReplaceDocument(ctx context.Context, vendorID, documentID uuid.UUID, chunks []*entity.DocumentChunk) error {
	return s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		repo := uow.DocumentChunkRepository()
		if err := repo.DeleteByDocumentId(ctx, vendorID, documentID); err != nil {
			return err
		}
		return repo.CreateBulk(ctx, chunks)
	})
}

func (s *SnapshotStore) RemoveDocument(ctx context.Context, vendorID, documentID uuid.UUID) error {
	uow := s.factory.NewUnitOfWork(ctx)
	return uow.DocumentChunkRepository().DeleteByDocumentId(ctx, vendorID, documentID)
}

func (s *SnapshotStore) Load(ctx context.Context, vendorID uuid.UUID) ([]*entity.DocumentChunk, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	return uow.DocumentChunkRepository().FindAllByVendorId(ctx, vendorID)
}

func (s *SnapshotStore) inTx(ctx context.Context, fn func(uow unitofwork.UnitOfWork) error) error {
	uow := s.factory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback() // no-op after a successful commit

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}
