package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
)

func exchange(i int) (domain.Turn, domain.Turn, domain.ToolInvocation) {
	user := domain.Turn{Role: domain.RoleUser, Content: fmt.Sprintf("question %d", i)}
	assistant := domain.Turn{Role: domain.RoleAssistant, Content: fmt.Sprintf("answer %d", i)}
	inv := domain.ToolInvocation{Tool: domain.NoTool, Result: fmt.Sprintf("result %d", i)}
	return user, assistant, inv
}

func TestAppendExchangeKeepsOrder(t *testing.T) {
	conv := NewStore().Session("s1")
	for i := 0; i < 3; i++ {
		conv.AppendExchange(exchange(i))
	}

	turns, invocations := conv.Snapshot()
	require.Len(t, turns, 6)
	require.Len(t, invocations, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, domain.RoleUser, turns[2*i].Role)
		assert.Equal(t, fmt.Sprintf("question %d", i), turns[2*i].Content)
		assert.Equal(t, domain.RoleAssistant, turns[2*i+1].Role)
		assert.Equal(t, fmt.Sprintf("answer %d", i), turns[2*i+1].Content)
		assert.Equal(t, fmt.Sprintf("result %d", i), invocations[i].Result)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store := NewStore()
	store.Session("alice").AppendExchange(exchange(0))

	assert.Equal(t, 2, store.Session("alice").Turns())
	assert.Zero(t, store.Session("bob").Turns())
	assert.Equal(t, 2, store.Len())
}

func TestSessionReturnsSameConversation(t *testing.T) {
	store := NewStore()
	a := store.Session("s1")
	b := store.Session("s1")
	assert.Same(t, a, b)
	assert.Equal(t, 1, store.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	conv := NewStore().Session("s1")
	conv.AppendExchange(exchange(0))

	turns, _ := conv.Snapshot()
	turns[0].Content = "mutated"

	fresh, _ := conv.Snapshot()
	assert.Equal(t, "question 0", fresh[0].Content)
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	store := NewStore()
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv := store.Session("shared")
			for i := 0; i < perWriter; i++ {
				conv.AppendExchange(exchange(i))
			}
		}()
	}
	wg.Wait()

	conv := store.Session("shared")
	assert.Equal(t, writers*perWriter*2, conv.Turns())
	assert.Equal(t, writers*perWriter, conv.Invocations())
}
