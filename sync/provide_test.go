package sync

import (
	"context"
	"testing"

	"github.com/KOMKZ/go-dashsync/api"
	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/mutation"
	"github.com/KOMKZ/go-dashsync/poller"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterProviders(t *testing.T) {
	s := NewSyncer(WithConfig(testConfig("http://localhost:1")))
	require.NoError(t, s.Init(context.Background(), nil))
	t.Cleanup(s.Deactivate)

	injector := do.New()
	RegisterProviders(injector, s)

	got, err := do.Invoke[*Syncer](injector)
	require.NoError(t, err)
	assert.Same(t, s, got)

	store, err := do.Invoke[*cache.Store](injector)
	require.NoError(t, err)
	assert.Same(t, s.Store(), store)

	client, err := do.Invoke[*api.Client](injector)
	require.NoError(t, err)
	assert.Same(t, s.API(), client)

	m, err := do.Invoke[*mutation.Mutator](injector)
	require.NoError(t, err)
	assert.Same(t, s.Mutator(), m)

	p, err := do.Invoke[*poller.Poller](injector)
	require.NoError(t, err)
	assert.Same(t, s.Poller(), p)
}

func TestProviders_BeforeInit(t *testing.T) {
	s := NewSyncer()

	injector := do.New()
	RegisterProviders(injector, s)

	_, err := do.Invoke[*cache.Store](injector)
	assert.ErrorIs(t, err, ErrPartNotReady)
}
