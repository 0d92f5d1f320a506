package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tierkv/coldstore"
)

func TestObjectKeyEscaping(t *testing.T) {
	s := &Store{bucket: "b", prefix: "tierkv"}

	// Relational key separators must not become S3 path structure.
	assert.Equal(t, "tierkv/D:%7Bt100:p1%7D:3", s.objectKey("D:{t100:p1}:3"))
	assert.Equal(t, "tierkv/user:1", s.objectKey("user:1"))
	assert.Equal(t, "tierkv/a%2Fb", s.objectKey("a/b"))
}

func TestObjectKeyNoPrefix(t *testing.T) {
	s := &Store{bucket: "b"}
	assert.Equal(t, "user:1", s.objectKey("user:1"))
}

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg)

	// Unique prefix per test run so parallel runs do not collide.
	prefix := fmt.Sprintf("test-tierkv-%d/", time.Now().UnixNano())
	store := NewStore(client, bucket, prefix)

	t.Run("PersistAndGet", func(t *testing.T) {
		n, err := store.PersistBatch(ctx,
			[]string{"0/user:1", "0/D:{t100:p1}:0"},
			[][]byte{[]byte("alice"), []byte("block")},
		)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := store.Get(ctx, "0/user:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("alice"), got)
	})

	t.Run("List", func(t *testing.T) {
		keys, err := store.List(ctx, "0/")
		require.NoError(t, err)
		assert.Contains(t, keys, "0/user:1")
		assert.Contains(t, keys, "0/D:{t100:p1}:0")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "0/user:1"))
		_, err := store.Get(ctx, "0/user:1")
		assert.ErrorIs(t, err, coldstore.ErrNotFound)

		// Absent keys delete cleanly.
		assert.NoError(t, store.Delete(ctx, "0/user:1"))

		require.NoError(t, store.Delete(ctx, "0/D:{t100:p1}:0"))
	})
}
