package domain

// FetchHistoryRepository defines the persistence port for fetch history.
// It lives entirely outside the engine boundary.
type FetchHistoryRepository interface {
	// Create persists a new history record
	Create(record *FetchRecord) error

	// FindByID finds a record by ID
	FindByID(id string) (*FetchRecord, error)

	// FindAll finds records matching the given column filters, newest first
	FindAll(filters map[string]interface{}) ([]*FetchRecord, error)

	// Stats returns aggregate counts
	Stats() (*FetchStats, error)

	// Close closes the underlying store
	Close() error
}
