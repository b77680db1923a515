package ps

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nickyhof/StrictDB/core"
)

var (
	ErrTransactionClosed = errors.New("transaction not started")
	ErrEmptyTransaction  = errors.New("no operations to commit")
)

// Operation is a single write or delete in a transaction.
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// TransactionBuilder batches writes into a single commit. Nothing reaches the
// repository until Commit, so a statement that fails part way leaves no trace.
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
	message     string
	started     bool
}

// BeginTransaction creates a new transaction builder for batching operations
func (persistence *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{
		persistence: persistence,
		operations:  make([]Operation, 0),
		started:     true,
	}, nil
}

func (tb *TransactionBuilder) add(op Operation) error {
	if !tb.started {
		return ErrTransactionClosed
	}
	tb.operations = append(tb.operations, op)
	return nil
}

// AddWrite stores data as row key of table.
func (tb *TransactionBuilder) AddWrite(table, key string, data []byte) error {
	return tb.add(Operation{Type: WriteOp, Path: RowPath(table, key), Data: data})
}

// AddDelete removes row key of table.
func (tb *TransactionBuilder) AddDelete(table, key string) error {
	return tb.add(Operation{Type: DeleteOp, Path: RowPath(table, key)})
}

// AddSchema replaces the stored schema of table.
func (tb *TransactionBuilder) AddSchema(table core.Table) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	return tb.add(Operation{Type: WriteOp, Path: TablePath(table.Name), Data: data})
}

// SetMessage overrides the default commit message.
func (tb *TransactionBuilder) SetMessage(message string) {
	tb.message = message
}

// Commit applies all batched operations in one commit. Operations apply in the order
// they were added, so a delete followed by a write of the same path keeps the write.
func (tb *TransactionBuilder) Commit(identity core.Identity) (Transaction, error) {
	if !tb.started {
		return Transaction{}, ErrTransactionClosed
	}

	if len(tb.operations) == 0 {
		return Transaction{}, ErrEmptyTransaction
	}

	changes := make([]TreeChange, 0, len(tb.operations))
	for _, op := range tb.operations {
		switch op.Type {
		case WriteOp:
			blobHash, err := tb.persistence.createBlob(op.Data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", op.Path, err)
			}
			changes = append(changes, TreeChange{Path: op.Path, BlobHash: blobHash})
		case DeleteOp:
			changes = append(changes, TreeChange{Path: op.Path, IsDelete: true})
		}
	}

	message := tb.message
	if message == "" {
		message = fmt.Sprintf("Batch transaction: %d operation(s)", len(tb.operations))
	}

	txn, err := tb.persistence.applyChanges(changes, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	tb.started = false
	tb.operations = nil

	return txn, nil
}

// Rollback discards all batched operations without committing
func (tb *TransactionBuilder) Rollback() {
	tb.started = false
	tb.operations = nil
}

// OperationCount returns the number of pending operations
func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}
