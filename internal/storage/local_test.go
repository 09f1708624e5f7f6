// internal/storage/local_test.go
package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalStore_PutGetRoundtrip(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	ref, err := store.Put(ctx, "cand-1/resume.pdf", []byte("%PDF-1.4 body"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "cand-1/resume.pdf", ref)

	data, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 body"), data)
}

func TestLocalStore_PutCreatesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "2026/08/cand-9/cv.docx", []byte("doc"), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "2026", "08", "cand-9", "cv.docx"))
	assert.NoError(t, statErr)
}

func TestLocalStore_Retrieve(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "cand-2/resume.pdf", []byte("content"), "application/pdf")
	require.NoError(t, err)

	ret, err := store.Retrieve(ctx, "cand-2/resume.pdf", "resume.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Empty(t, ret.RedirectURL, "local storage returns content, not a redirect")
	assert.Equal(t, []byte("content"), ret.Content)
	assert.Equal(t, "resume.pdf", ret.Filename)
	assert.Equal(t, "application/pdf", ret.ContentType)
}

func TestLocalStore_GetMissingBlob(t *testing.T) {
	store := newTestLocalStore(t)

	_, err := store.Get(context.Background(), "does/not/exist.pdf")
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeStorageUnavailable, pipeerrors.CodeOf(err))
}

func TestLocalStore_RejectsPathTraversal(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	tests := []string{
		"../outside.pdf",
		"../../etc/passwd",
		"/etc/passwd",
		"a/../../escape.pdf",
	}
	for _, ref := range tests {
		t.Run(ref, func(t *testing.T) {
			_, err := store.Put(ctx, ref, []byte("x"), "application/pdf")
			assert.Error(t, err)

			_, err = store.Get(ctx, ref)
			assert.Error(t, err)
		})
	}
}

func TestLocalStore_DeleteIsIdempotent(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "cand-3/resume.pdf", []byte("x"), "application/pdf")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "cand-3/resume.pdf"))
	require.NoError(t, store.Delete(ctx, "cand-3/resume.pdf"), "deleting a missing blob is not an error")

	_, err = store.Get(ctx, "cand-3/resume.pdf")
	assert.Error(t, err)
}
