package core

import (
	"io"
	"log/slog"
)

// Creator builds a new child for a list.
type Creator interface {
	Create(name, description string) (Node, Code)
}

// Deleter tears down a child before a list unlinks it.
type Deleter interface {
	Delete(node Node) Code
}

// CreatorFunc adapts a factory function to the Creator interface
type CreatorFunc func(name, description string) (Node, Code)

// Create calls f
func (f CreatorFunc) Create(name, description string) (Node, Code) {
	return f(name, description)
}

// GenericCreator builds children through a factory after checking that a
// name was given.
type GenericCreator struct {
	Factory func(name, description string) (Node, Code)
}

// Create validates the name and delegates to the factory
func (c GenericCreator) Create(name, description string) (Node, Code) {
	if name == "" {
		return nil, MissingName
	}
	if c.Factory == nil {
		return nil, MissingInitialization
	}
	return c.Factory(name, description)
}

// NoCreator refuses every creation.
type NoCreator struct{}

// Create always fails with NoCreate
func (NoCreator) Create(name, description string) (Node, Code) {
	return nil, NoCreate
}

// GenericDeleter closes children that hold resources and accepts the rest.
type GenericDeleter struct{}

// Delete closes node if it implements io.Closer
func (GenericDeleter) Delete(node Node) Code {
	if c, ok := node.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Error closing deleted resource", "resource", node.Name(), "err", err)
		}
	}
	return EOK
}

// NoDeleter refuses every deletion.
type NoDeleter struct{}

// Delete always fails with NoDelete
func (NoDeleter) Delete(node Node) Code {
	return NoDelete
}
