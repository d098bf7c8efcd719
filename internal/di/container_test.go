// internal/di/container_test.go
package di

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerRegisterAndGet(t *testing.T) {
	c := NewContainer()

	type dummy struct{ name string }
	svc := &dummy{name: "store"}

	c.Register("store", svc)

	assert.True(t, c.Has("store"))
	assert.Same(t, svc, c.Get("store"))
	assert.Nil(t, c.Get("missing"))
	assert.False(t, c.Has("missing"))
}

func TestContainerOverwrite(t *testing.T) {
	c := NewContainer()

	c.Register("llm", "first")
	c.Register("llm", "second")

	assert.Equal(t, "second", c.Get("llm"))
}

func TestContainerClear(t *testing.T) {
	c := NewContainer()
	c.Register("store", struct{}{})

	c.Clear()

	assert.False(t, c.Has("store"))
	assert.Empty(t, c.GetNames())
}

func TestGlobalContainerIsSingleton(t *testing.T) {
	assert.Same(t, GetContainer(), GetContainer())
}

func TestContainerConcurrentAccess(t *testing.T) {
	c := NewContainer()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Register("progress", i)
			_ = c.Get("progress")
			_ = c.GetNames()
		}()
	}
	wg.Wait()

	assert.True(t, c.Has("progress"))
}
