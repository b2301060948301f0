package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(_ context.Context, o RequestOptions) (RequestOptions, error) { return o, nil }

func TestRegistryUseEject(t *testing.T) {
	r := NewRegistry[RequestOptions]()

	id1 := r.Use(identity, nil)
	id2 := r.Use(identity, nil)
	id3 := r.Use(identity, nil)

	assert.Equal(t, Handle(0), id1)
	assert.Equal(t, Handle(1), id2)
	assert.Equal(t, Handle(2), id3)
	require.Equal(t, 3, r.Len())

	r.Eject(id1)
	r.Eject(id3)

	handlers := r.Handlers()
	require.Len(t, handlers, 1)
	assert.Equal(t, id2, handlers[0].ID)

	r.Eject(id2)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryEjectUnknownIsNoop(t *testing.T) {
	r := NewRegistry[RequestOptions]()
	id := r.Use(identity, nil)

	r.Eject(Handle(42))
	r.Eject(id)
	r.Eject(id)

	assert.Equal(t, 0, r.Len())
}

func TestRegistryHandlesNeverReused(t *testing.T) {
	r := NewRegistry[*Response]()
	first := r.Use(nil, nil)
	r.Eject(first)
	r.Clear()

	next := r.Use(nil, nil)
	assert.Equal(t, Handle(1), next)
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry[RequestOptions]()
	r.Use(identity, nil)
	r.Use(identity, nil)

	r.Clear()

	assert.Empty(t, r.Handlers())
}

func TestRegistryHandlersIsSnapshot(t *testing.T) {
	r := NewRegistry[RequestOptions]()
	r.Use(identity, nil)

	snapshot := r.Handlers()
	r.Use(identity, nil)
	r.Clear()

	assert.Len(t, snapshot, 1)
}

func TestRegistryConcurrentUse(t *testing.T) {
	r := NewRegistry[RequestOptions]()

	var wg sync.WaitGroup
	ids := make(chan Handle, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.Use(identity, nil)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[Handle]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate handle %d", id)
		seen[id] = true
	}
	assert.Equal(t, 100, r.Len())
}

func TestFulfillOrderAndFailureIndex(t *testing.T) {
	r := NewRegistry[RequestOptions]()
	var order []string
	r.Use(func(_ context.Context, o RequestOptions) (RequestOptions, error) {
		order = append(order, "first")
		o.BaseURL = "a"
		return o, nil
	}, nil)
	r.Use(nil, nil)
	r.Use(func(_ context.Context, o RequestOptions) (RequestOptions, error) {
		order = append(order, "third")
		o.BaseURL += "c"
		return o, nil
	}, nil)

	got, idx, err := fulfill(context.Background(), r.Handlers(), RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	assert.Equal(t, "ac", got.BaseURL)
	assert.Equal(t, []string{"first", "third"}, order)

	boom := errors.New("boom")
	r.Use(func(_ context.Context, o RequestOptions) (RequestOptions, error) {
		return o, boom
	}, nil)
	_, idx, err = fulfill(context.Background(), r.Handlers(), RequestOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, idx)
}

func TestReject(t *testing.T) {
	original := errors.New("original")
	replaced := errors.New("replaced")

	t.Run("no handlers keeps error", func(t *testing.T) {
		resp, err := reject[*Response](context.Background(), nil, original)
		assert.Nil(t, resp)
		assert.Same(t, original, err)
	})

	t.Run("observer keeps error", func(t *testing.T) {
		r := NewRegistry[*Response]()
		var seen error
		r.Use(nil, func(_ context.Context, err error) (*Response, error) {
			seen = err
			return nil, nil
		})
		_, err := reject(context.Background(), r.Handlers(), original)
		assert.Same(t, original, err)
		assert.Same(t, original, seen)
	})

	t.Run("replace then observe", func(t *testing.T) {
		r := NewRegistry[*Response]()
		var seen error
		r.Use(nil, func(context.Context, error) (*Response, error) { return nil, replaced })
		r.Use(nil, func(_ context.Context, err error) (*Response, error) {
			seen = err
			return nil, nil
		})
		_, err := reject(context.Background(), r.Handlers(), original)
		assert.Same(t, replaced, err)
		assert.Same(t, replaced, seen)
	})

	t.Run("suppress stops chain", func(t *testing.T) {
		r := NewRegistry[*Response]()
		called := false
		recovered := &Response{Status: 299}
		r.Use(nil, func(context.Context, error) (*Response, error) { return recovered, nil })
		r.Use(nil, func(context.Context, error) (*Response, error) {
			called = true
			return nil, nil
		})
		resp, err := reject(context.Background(), r.Handlers(), original)
		require.NoError(t, err)
		assert.Same(t, recovered, resp)
		assert.False(t, called)
	})
}

type countingHandler struct {
	fulfilled int
	rejected  int
}

func (h *countingHandler) Fulfill(_ context.Context, o RequestOptions) (RequestOptions, error) {
	h.fulfilled++
	return o, nil
}

func (h *countingHandler) Reject(context.Context, error) (*Response, error) {
	h.rejected++
	return nil, nil
}

func TestUseHandler(t *testing.T) {
	r := NewRegistry[RequestOptions]()
	h := &countingHandler{}
	id := r.UseHandler(h)

	_, _, err := fulfill(context.Background(), r.Handlers(), RequestOptions{})
	require.NoError(t, err)
	_, _ = reject(context.Background(), r.Handlers(), errors.New("x"))

	assert.Equal(t, 1, h.fulfilled)
	assert.Equal(t, 1, h.rejected)
	assert.Equal(t, Handle(0), id)
}
