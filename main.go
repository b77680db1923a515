package StrictDB

import (
	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/db"
	"github.com/nickyhof/StrictDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
	options     []db.Option
}

// Open wraps persistence. The options are applied to every engine the instance hands out.
func Open(persistence *ps.Persistence, opts ...db.Option) *Instance {
	return &Instance{
		Persistence: persistence,
		options:     opts,
	}
}

// Engine returns an engine that records identity on its commits. Engines from one
// instance share its persistence and its lock.
func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	return db.NewEngine(instance.Persistence, identity, instance.options...)
}
