package idgen

import (
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.Len(t, id, 20)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		_, err := xid.FromString(id)
		require.NoError(t, err)
	}
}

func TestNewID_Sortable(t *testing.T) {
	a := NewRequestID()
	time.Sleep(time.Second)
	b := NewUploadID()
	assert.Less(t, a, b)
}

func TestRunIDFromTime(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2024, 1, 2, 4, 4, 5, 0, loc)
	assert.Equal(t, "2024_01_02_03_04_05", RunIDFromTime(ts))
}

func TestNewSecureSecret(t *testing.T) {
	for _, n := range []int{16, 32, 43, 64} {
		s := NewSecureSecret(n)
		assert.Len(t, s, n)
	}
	assert.NotEqual(t, NewSecureSecret(32), NewSecureSecret(32))
}
