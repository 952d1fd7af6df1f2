package pipeline

import (
	"gstd/pkg/core"
)

// CreateRef takes a creation reference on the pipeline called name,
// creating it from description when it does not exist yet.
func CreateRef(list *core.List, name, description string) core.Code {
	if name == "" {
		return core.MissingName
	}
	for {
		if list.With(name, ref) {
			return core.EOK
		}
		code := list.Create(name, description)
		// lost a race against another creator, take a reference on theirs
		if code == core.ExistingName || code == core.ExistingResource {
			continue
		}
		return code
	}
}

func ref(node core.Node) {
	if p, ok := node.(*Pipeline); ok {
		p.Ref()
	}
}

// DeleteRef drops a creation reference. The pipeline is torn down when the
// last one goes.
func DeleteRef(list *core.List, name string) core.Code {
	return list.Delete(name)
}

// PlayRef takes a play reference on the pipeline called name
func PlayRef(list *core.List, name string) core.Code {
	p, code := lookup(list, name)
	if code != core.EOK {
		return code
	}
	return p.State().PlayRef()
}

// StopRef drops a play reference on the pipeline called name
func StopRef(list *core.List, name string) core.Code {
	p, code := lookup(list, name)
	if code != core.EOK {
		return code
	}
	return p.State().StopRef()
}

func lookup(list *core.List, name string) (*Pipeline, core.Code) {
	node := list.Find(name)
	if node == nil {
		return nil, core.NoResource
	}
	p, ok := node.(*Pipeline)
	if !ok {
		return nil, core.NoPipeline
	}
	return p, core.EOK
}
