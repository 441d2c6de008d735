package bfs

// The open-file table is owned by a FileSystem instance rather than being
// process-global, so multiple images can be open at once and tests stay
// isolated. Entries are keyed by inode number with a reference count:
// opening the same file twice yields one shared cursor, matching the
// single-cursor-per-inode behavior of the on-disk format's origins.

// oftEntry one open inode and its cursor. The cursor is owned exclusively
// by this entry and only moves as a side effect of read, write or seek.
type oftEntry struct {
	fd     int
	inum   uint32
	cursor int64
	refs   int
}

type openFileTable struct {
	byFd   map[int]*oftEntry
	byInum map[uint32]*oftEntry
	nextFd int
}

func newOpenFileTable() *openFileTable {
	return &openFileTable{
		byFd:   map[int]*oftEntry{},
		byInum: map[uint32]*oftEntry{},
		// leave room for the conventional stdio descriptors
		nextFd: 3,
	}
}

// open returns the table entry for inum, creating it with a zero cursor on
// first open and bumping the reference count on every subsequent one.
func (t *openFileTable) open(inum uint32) *oftEntry {
	if e, ok := t.byInum[inum]; ok {
		e.refs++
		return e
	}
	e := &oftEntry{
		fd:   t.nextFd,
		inum: inum,
		refs: 1,
	}
	t.nextFd++
	t.byFd[e.fd] = e
	t.byInum[inum] = e
	return e
}

// release drops one reference; the entry disappears when the last holder
// closes.
func (t *openFileTable) release(e *oftEntry) {
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(t.byFd, e.fd)
	delete(t.byInum, e.inum)
}
