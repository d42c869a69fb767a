// Package sendfile caches open file descriptors for static assets served
// via zero-copy sendfile(2), so a hot file under heavy request load is not
// reopened on every request (it is still stat'd on each lookup to check
// its mtime), and maps file extensions to content types for the
// static-file middleware.
package sendfile

import (
	"container/list"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is a cached open file plus the stat info it was last validated
// against.
type Entry struct {
	File    *os.File
	Size    int64
	ModTime time.Time
}

type cacheEntry struct {
	entry   Entry
	element *list.Element
}

// FileCache is an LRU cache of open *os.File handles keyed by path, valid
// as long as the file's mtime hasn't changed since caching. This extends
// the original cache (path-keyed only, no invalidation) with the mtime
// check it lacked: without one, a file edited after being served once
// would keep serving its old bytes for the life of the process.
type FileCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	lru      *list.List
	maxFiles int
}

// NewFileCache creates a cache holding at most maxFiles open descriptors.
func NewFileCache(maxFiles int) *FileCache {
	return &FileCache{
		entries:  make(map[string]*cacheEntry),
		lru:      list.New(),
		maxFiles: maxFiles,
	}
}

// Get returns a cached, still-valid file handle for path, opening and
// stat'ing it if necessary. The returned *os.File is shared across
// callers; sendfile(2) takes an explicit offset, so concurrent readers
// from different Tasks do not interfere with each other's position.
func (fc *FileCache) Get(path string) (Entry, error) {
	fc.mu.RLock()
	ce, ok := fc.entries[path]
	fc.mu.RUnlock()

	if ok {
		if fresh, err := isFresh(path, ce.entry.ModTime); err == nil && fresh {
			fc.mu.Lock()
			fc.lru.MoveToFront(ce.element)
			fc.mu.Unlock()
			return ce.entry, nil
		}
		fc.evict(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return Entry{}, err
	}

	entry := Entry{File: f, Size: stat.Size(), ModTime: stat.ModTime()}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	elem := fc.lru.PushFront(path)
	fc.entries[path] = &cacheEntry{entry: entry, element: elem}
	if fc.lru.Len() > fc.maxFiles {
		if oldest := fc.lru.Back(); oldest != nil {
			fc.removeLocked(oldest.Value.(string))
		}
	}
	return entry, nil
}

func isFresh(path string, cachedModTime time.Time) (bool, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return stat.ModTime().Equal(cachedModTime), nil
}

func (fc *FileCache) evict(path string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.removeLocked(path)
}

// removeLocked assumes fc.mu is already held for writing.
func (fc *FileCache) removeLocked(path string) {
	ce, ok := fc.entries[path]
	if !ok {
		return
	}
	ce.entry.File.Close()
	fc.lru.Remove(ce.element)
	delete(fc.entries, path)
}

// Close closes every cached file handle.
func (fc *FileCache) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, ce := range fc.entries {
		ce.entry.File.Close()
	}
	fc.entries = make(map[string]*cacheEntry)
	fc.lru.Init()
}

// GetContentType returns a MIME type guess based on file extension.
func GetContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".xml":
		return "application/xml; charset=utf-8"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
