package ps

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/nickyhof/StrictDB/core"
)

func viewsPath() string {
	return path.Join(".strictdb", "views", core.MainDatabase)
}

func ViewPath(name string) string {
	return path.Join(viewsPath(), strings.ToLower(name)+".json")
}

// CreateView stores a view definition
func (persistence *Persistence) CreateView(view core.View, identity core.Identity) (txn Transaction, err error) {
	dataBytes, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal view: %w", err)
	}

	return persistence.WriteFileDirect(ViewPath(view.Name), dataBytes, identity, fmt.Sprintf("Creating view %s", view.Name))
}

func (persistence *Persistence) GetView(name string) (*core.View, error) {
	snapshot, err := persistence.Snapshot()
	if err != nil {
		return nil, err
	}
	return snapshot.GetView(name)
}

// DropView removes a view definition
func (persistence *Persistence) DropView(name string, identity core.Identity) (txn Transaction, err error) {
	return persistence.DeletePathDirect([]string{ViewPath(name)}, identity, fmt.Sprintf("Dropping view %s", name))
}

// GetView reads a view definition. A missing view wraps ErrNotFound.
func (s *Snapshot) GetView(name string) (*core.View, error) {
	data, err := s.ReadFile(ViewPath(name))
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", name, ErrNotFound)
	}

	var view core.View
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view: %w", err)
	}

	return &view, nil
}

// ListViews returns every view, skipping definitions that fail to decode.
func (s *Snapshot) ListViews() []core.View {
	entries, _ := s.List(viewsPath())

	var views []core.View
	for _, entry := range entries {
		if entry.IsDir || !strings.HasSuffix(entry.Name, ".json") {
			continue
		}

		view, err := s.GetView(strings.TrimSuffix(entry.Name, ".json"))
		if err != nil {
			continue
		}
		views = append(views, *view)
	}

	return views
}
