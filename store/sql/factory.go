package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-soasecurity/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db   *bun.DB
	opts []AnonymizationOption

	anonymizationRepository *AnonymizationRepository
}

func NewRepositoryFactory(opts ...AnonymizationOption) *RepositoryFactory {
	return &RepositoryFactory{opts: append([]AnonymizationOption(nil), opts...)}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...AnonymizationOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if client == nil {
		return nil, core.NewInvalidArgumentError("persistenceClient", "sqlstore: persistence client is required")
	}
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...AnonymizationOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts a *bun.DB or anything exposing DB() *bun.DB, such as a
// go-persistence-bun client.
func (f *RepositoryFactory) BuildStores(persistenceClient any) (*RepositoryFactory, error) {
	if f == nil {
		return nil, core.NewInternalError("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.anonymizationRepository != nil {
		return f, nil
	}
	repo, err := NewAnonymizationRepository(f.db, f.opts...)
	if err != nil {
		return nil, err
	}
	f.anonymizationRepository = repo
	return f, nil
}

func (f *RepositoryFactory) AnonymizationRepository() *AnonymizationRepository {
	if f == nil {
		return nil
	}
	return f.anonymizationRepository
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, core.NewInvalidArgumentError("persistenceClient", "sqlstore: persistence client is required")
	case *bun.DB:
		if typed == nil {
			return nil, core.NewInvalidArgumentError("persistenceClient", "sqlstore: persistence client is required")
		}
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, core.NewInvalidArgumentError("persistenceClient", "sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, core.NewInvalidArgumentError("persistenceClient", fmt.Sprintf("sqlstore: unsupported persistence client type %T", candidate))
	}
}
