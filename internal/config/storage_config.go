package config

type StorageConfig interface {
	GetDatabaseDSN() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetDatabaseDSN returns the Postgres DSN for the session store.
// Empty selects the in-memory store.
func (Storage) GetDatabaseDSN() string {
	return GetEnv("DATABASE_DSN", "")
}
