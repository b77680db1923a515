package op

import (
	"errors"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/ps"
)

type ViewOp struct {
	View        core.View
	Persistence *ps.Persistence
}

func CreateView(view core.View, persistence *ps.Persistence, identity core.Identity) (*ps.Transaction, *ViewOp, error) {
	txn, err := persistence.CreateView(view, identity)
	if err != nil {
		return nil, nil, err
	}

	return &txn, &ViewOp{
		View:        view,
		Persistence: persistence,
	}, nil
}

// GetView loads a view. found is false, with a nil error, when name is not a view.
func GetView(name string, persistence *ps.Persistence, snapshot *ps.Snapshot) (viewOp *ViewOp, found bool, err error) {
	view, err := snapshot.GetView(name)
	if errors.Is(err, ps.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &ViewOp{
		View:        *view,
		Persistence: persistence,
	}, true, nil
}

func (op *ViewOp) DropView(identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.DropView(op.View.Name, identity)
}

// IsView reports whether name is a view in snapshot.
func IsView(name string, snapshot *ps.Snapshot) bool {
	_, err := snapshot.GetView(name)
	return err == nil
}

// ViewNotModifiable is the error for a mutation aimed at a view.
func ViewNotModifiable(name string) error {
	return core.Errorf(core.ErrSchema, "cannot modify %s because it is a view", name)
}
