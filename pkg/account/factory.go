package account

import (
	"fmt"
)

// RepositoryConfig contains configuration for creating account stores
type RepositoryConfig struct {
	// DB is required for PostgreSQL stores, usually a *pgxpool.Pool
	DB DBTX
	// DataDir is required for file-based stores
	DataDir string
}

// NewStore creates a new account store based on the persistence type
func NewStore(persistenceType string, config RepositoryConfig) (Store, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.DB == nil {
			return nil, fmt.Errorf("database required for postgres repository")
		}
		return NewPostgresRepository(config.DB), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		repo, err := NewFileRepository(config.DataDir)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "memory", "inmem":
		return NewInMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, memory)", persistenceType)
	}
}
