package search

// Index defines the search operations used by the outer surfaces.
// Consumers depend on this interface rather than the concrete *DB type.
type Index interface {
	Upsert(r Row, body string) error
	Delete(id string) error
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Search(query string, limit int) ([]Result, error)
	Close() error
}

// Verify *DB satisfies Index at compile time.
var _ Index = (*DB)(nil)
