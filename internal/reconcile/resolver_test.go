package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestResolveMappedLogin(t *testing.T) {
	t.Parallel()

	resolver := NewUsernameResolver(&fakeUsernameStore{mappings: map[string]string{"alice": "U123"}})

	name := resolver.Resolve(context.Background(), zerolog.Nop(), 1, "alice")
	assert.Equal(t, "<@U123>", name)
}

func TestResolveUnmappedLoginFallsBack(t *testing.T) {
	t.Parallel()

	resolver := NewUsernameResolver(&fakeUsernameStore{mappings: map[string]string{}})

	name := resolver.Resolve(context.Background(), zerolog.Nop(), 1, "stranger")
	assert.Equal(t, "stranger", name)
}

func TestResolveLookupErrorFallsBack(t *testing.T) {
	t.Parallel()

	resolver := NewUsernameResolver(&fakeUsernameStore{err: errors.New("connection refused")})

	name := resolver.Resolve(context.Background(), zerolog.Nop(), 1, "alice")
	assert.Equal(t, "alice", name)
}
