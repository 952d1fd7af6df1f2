package core

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaf struct {
	Base
	closed atomic.Int32
}

func newLeaf(name string) *leaf {
	l := &leaf{}
	l.Base = NewBase(name, nil, nil)
	return l
}

func (l *leaf) Close() error {
	l.closed.Add(1)
	return nil
}

func leafCreator() Creator {
	return GenericCreator{Factory: func(name, description string) (Node, Code) {
		return newLeaf(name), EOK
	}}
}

func newTestList() *List {
	return NewList("things", AccessCreate|AccessRead|AccessDelete, leafCreator(), GenericDeleter{})
}

func TestListCreateAndRead(t *testing.T) {
	list := newTestList()

	require.Equal(t, EOK, list.Create("a", ""))
	require.Equal(t, EOK, list.Create("b", ""))

	node, code := list.Read("b")
	require.Equal(t, EOK, code)
	assert.Equal(t, "b", node.Name())
	assert.Equal(t, 2, list.Count())

	_, code = list.Read("missing")
	assert.Equal(t, NoResource, code)
	assert.Equal(t, NoResource, list.LastCode())
}

func TestListDuplicateCreate(t *testing.T) {
	list := newTestList()

	require.Equal(t, EOK, list.Create("dup", ""))
	assert.Equal(t, ExistingResource, list.Create("dup", ""))
	assert.Equal(t, 1, list.Count())
}

func TestListConcurrentDuplicateCreate(t *testing.T) {
	list := newTestList()

	var wg sync.WaitGroup
	var ok, existing atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch list.Create("same", "") {
			case EOK:
				ok.Add(1)
			case ExistingResource:
				existing.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(15), existing.Load())
	assert.Equal(t, 1, list.Count())
}

func TestListDuplicateDiscardsNewChild(t *testing.T) {
	var built []*leaf
	list := NewList("things", AccessCreate|AccessRead|AccessDelete, CreatorFunc(func(name, description string) (Node, Code) {
		l := newLeaf(name)
		built = append(built, l)
		return l, EOK
	}), GenericDeleter{})

	require.Equal(t, EOK, list.Create("x", ""))
	require.Equal(t, ExistingResource, list.Create("x", ""))
	require.Len(t, built, 2)
	assert.Equal(t, int32(0), built[0].closed.Load())
	assert.Equal(t, int32(1), built[1].closed.Load())
}

func TestListDelete(t *testing.T) {
	list := newTestList()
	for _, name := range []string{"a", "b", "c"} {
		require.Equal(t, EOK, list.Create(name, ""))
	}
	b := list.Find("b").(*leaf)

	assert.Equal(t, NoResource, list.Delete("missing"))
	assert.Equal(t, 3, list.Count())

	require.Equal(t, EOK, list.Delete("b"))
	assert.Equal(t, 2, list.Count())
	assert.Equal(t, int32(1), b.closed.Load())

	var names []string
	for _, n := range list.Children() {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestListAccessFlags(t *testing.T) {
	list := NewList("ro", AccessRead, leafCreator(), GenericDeleter{})
	require.Equal(t, EOK, list.Append(newLeaf("fixed")))

	assert.Equal(t, NoCreate, list.Create("x", ""))
	assert.Equal(t, NoDelete, list.Delete("fixed"))
	assert.Equal(t, 1, list.Count())
}

func TestListStrategies(t *testing.T) {
	tests := []struct {
		name    string
		creator Creator
		deleter Deleter
		create  Code
		delete  Code
	}{
		{"generic", leafCreator(), GenericDeleter{}, EOK, EOK},
		{"no creator", NoCreator{}, GenericDeleter{}, NoCreate, NoResource},
		{"no deleter", leafCreator(), NoDeleter{}, EOK, NoDelete},
		{"missing creator", nil, GenericDeleter{}, MissingInitialization, NoResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := NewList("l", AccessCreate|AccessRead|AccessDelete, tt.creator, tt.deleter)
			assert.Equal(t, tt.create, list.Create("child", ""))
			assert.Equal(t, tt.delete, list.Delete("child"))
		})
	}
}

func TestGenericCreatorRequiresName(t *testing.T) {
	list := newTestList()
	assert.Equal(t, MissingName, list.Create("", ""))
	assert.Equal(t, 0, list.Count())
}

func TestListCountKeyword(t *testing.T) {
	list := newTestList()
	require.Equal(t, EOK, list.Create("a", ""))
	require.Equal(t, EOK, list.Create("b", ""))

	node, code := list.Read(CountName)
	require.Equal(t, EOK, code)
	doc, code := node.Serialize()
	require.Equal(t, EOK, code)
	assert.Equal(t, "count", doc.GetString("name"))
	value, _ := doc.Get("value")
	assert.Equal(t, uint64(2), value)
}

func TestListSerialize(t *testing.T) {
	list := newTestList()
	require.Equal(t, EOK, list.Create("first", ""))
	require.Equal(t, EOK, list.Create("second", ""))

	doc, code := list.Serialize()
	require.Equal(t, EOK, code)

	raw, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"properties": [{"name": "count", "value": 2, "param": {"description": "The amount of nodes in the list", "type": "guint", "access": "((GstdParamFlags) READ)"}}],
		"nodes": [{"name": "first"}, {"name": "second"}]
	}`, string(raw))
}

type failingDeleter struct{ code Code }

func (d failingDeleter) Delete(node Node) Code { return d.code }

func TestListDeleterFailureKeepsChild(t *testing.T) {
	list := NewList("l", AccessCreate|AccessRead|AccessDelete, leafCreator(), failingDeleter{code: StateError})
	require.Equal(t, EOK, list.Create("a", ""))

	assert.Equal(t, StateError, list.Delete("a"))
	assert.Equal(t, 1, list.Count())
}

type retained struct {
	*leaf
	Refcount
}

func TestListDeleteHonorsReleaser(t *testing.T) {
	r := &retained{leaf: newLeaf("shared")}
	r.Ref()
	r.Ref()
	list := newTestList()
	require.Equal(t, EOK, list.Append(r))

	require.Equal(t, EOK, list.Delete("shared"))
	assert.Equal(t, 1, list.Count(), "still referenced")

	require.Equal(t, EOK, list.Delete("shared"))
	assert.Equal(t, 0, list.Count())
	assert.Equal(t, int32(1), r.closed.Load())
}

func TestRefcountConcurrent(t *testing.T) {
	for round := 0; round < 20; round++ {
		t.Run(fmt.Sprintf("round %d", round), func(t *testing.T) {
			var rc Refcount
			var wg sync.WaitGroup
			for i := 0; i < 3; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					rc.Ref()
				}()
			}
			wg.Wait()

			var zero atomic.Int32
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, last := rc.Unref(); last {
						zero.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), zero.Load())
			assert.Equal(t, 0, rc.Count())
		})
	}
}

func TestRefcountInterleaved(t *testing.T) {
	for round := 0; round < 20; round++ {
		t.Run(fmt.Sprintf("round %d", round), func(t *testing.T) {
			var rc Refcount
			rc.Ref()

			var zero atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(yield int) {
					defer wg.Done()
					rc.Ref()
					for j := 0; j < yield; j++ {
						runtime.Gosched()
					}
					if _, last := rc.Unref(); last {
						zero.Add(1)
					}
				}(rand.Intn(4))
			}
			wg.Wait()
			assert.Zero(t, zero.Load(), "the held reference keeps the count above zero")

			_, last := rc.Unref()
			assert.True(t, last)
			assert.Equal(t, 0, rc.Count())
		})
	}
}

func TestListReservedName(t *testing.T) {
	list := newTestList()
	assert.Equal(t, ExistingName, list.Create(CountName, ""))
	assert.Equal(t, ExistingName, list.Append(newLeaf(CountName)))
	assert.Equal(t, 0, list.Count())

	node, code := list.Read(CountName)
	require.Equal(t, EOK, code)
	assert.Equal(t, uint64(0), node.(*ValueNode).Value())
}

func TestCodeDescriptions(t *testing.T) {
	tests := []struct {
		code Code
		num  int
		desc string
	}{
		{EOK, 0, "Success"},
		{NoResource, 6, "Resource requested doesn't exist"},
		{ExistingResource, 8, "Resource already exists"},
		{BadValue, 13, "Bad value"},
		{MissingName, 18, "Name is missing"},
		{Timeout, 19, "Timeout waiting for resource"},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.num, int(tt.code))
			assert.Equal(t, tt.desc, tt.code.Description())
		})
	}
	assert.Equal(t, "Unknown return code", Code(99).Description())
}
