package ipc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	name string
	fail error
	log  *[]string
}

func (f *fakeServer) Start() error {
	if f.fail != nil {
		return f.fail
	}
	*f.log = append(*f.log, "start "+f.name)
	return nil
}

func (f *fakeServer) Stop() { *f.log = append(*f.log, "stop "+f.name) }

func (f *fakeServer) Name() string { return f.name }

func TestManagerOrder(t *testing.T) {
	var log []string
	m := NewManager(&fakeServer{name: "tcp", log: &log}, &fakeServer{name: "http", log: &log})
	m.Add(&fakeServer{name: "nats", log: &log})
	assert.Equal(t, []string{"tcp", "http", "nats"}, m.Names())

	require.NoError(t, m.Start())
	assert.Error(t, m.Start())
	m.Stop()
	m.Stop()

	assert.Equal(t, []string{
		"start tcp", "start http", "start nats",
		"stop nats", "stop http", "stop tcp",
	}, log)
}

func TestManagerRollback(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := NewManager(
		&fakeServer{name: "tcp", log: &log},
		&fakeServer{name: "http", fail: boom, log: &log},
		&fakeServer{name: "nats", log: &log},
	)

	err := m.Start()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "http")
	assert.Equal(t, []string{"start tcp", "stop tcp"}, log)

	m.Stop()
	assert.Len(t, log, 2)
}
