package progress

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	s := New(path)

	unlock, err := s.Lock()
	require.NoError(t, err)

	data, err := os.ReadFile(path + ".lock")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	// A second owner of the same file is refused while the lock is held.
	_, err = New(path).Lock()
	assert.ErrorIs(t, err, ErrLocked)

	unlock()

	// The file outlives the lock; the next owner takes it over.
	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err)

	unlock2, err := New(path).Lock()
	require.NoError(t, err)
	unlock2()
}

func TestStore_LockSingleOwnerAcrossRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	unlock, err := New(path).Lock()
	require.NoError(t, err)

	// A contender opens the lock file while it is held, then wins it on release.
	f, err := os.OpenFile(path+".lock", os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	unlock()
	require.NoError(t, syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB))

	// A newcomer must see that contender as the owner.
	_, err = New(path).Lock()
	assert.ErrorIs(t, err, ErrLocked)
}
