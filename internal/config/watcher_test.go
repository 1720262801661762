package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lcs002/nsp-crisma-app/internal/store"
)

func writeUsersFile(t *testing.T, path string, users string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(users), 0o600))
}

func TestUsersWatcherInitialLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.yaml")
	writeUsersFile(t, path, "users:\n  - username: alice\n    password_hash: hash-a\n")

	var mu sync.Mutex
	var got []store.Credentials
	w, err := NewUsersWatcher(path, func(users []store.Credentials) {
		mu.Lock()
		got = users
		mu.Unlock()
	}, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { require.NoError(t, w.Stop()) }()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)
	assert.Len(t, w.LastUsers(), 1)
}

func TestUsersWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.yaml")
	writeUsersFile(t, path, "users:\n  - username: alice\n    password_hash: hash-a\n")

	updates := make(chan []store.Credentials, 4)
	w, err := NewUsersWatcher(path, func(users []store.Credentials) {
		updates <- users
	}, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { require.NoError(t, w.Stop()) }()

	// Initial load.
	select {
	case users := <-updates:
		require.Len(t, users, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial load")
	}

	writeUsersFile(t, path, "users:\n  - username: alice\n    password_hash: hash-a\n  - username: bob\n    password_hash: hash-b\n")

	select {
	case users := <-updates:
		require.Len(t, users, 2)
		assert.Equal(t, "bob", users[1].Username)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestUsersWatcherInvalidReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.yaml")
	writeUsersFile(t, path, "users:\n  - username: alice\n    password_hash: hash-a\n")

	errs := make(chan error, 4)
	w, err := NewUsersWatcher(path, nil,
		WithDebounceDelay(10*time.Millisecond),
		WithErrorCallback(func(err error) { errs <- err }),
	)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { require.NoError(t, w.Stop()) }()

	writeUsersFile(t, path, "{{{not yaml")

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	users := w.LastUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestUsersWatcherStartMissingFile(t *testing.T) {
	w, err := NewUsersWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}
