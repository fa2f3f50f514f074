package app

// IngestOperation tracks a CLI operation that may mutate the database.
// Operations are created in memory with ID=0. Only DB-mutating commands
// persist them (giving them an auto-increment ID from the database).
type IngestOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewIngestOperation creates a new in-memory ingest operation.
func NewIngestOperation(operation, parameters string) *IngestOperation {
	return &IngestOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *IngestOperation) Persisted() bool {
	return op.ID != 0
}
