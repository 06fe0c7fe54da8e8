package scanner

import "os"

// LocalFS implements directory listing and file reads over the local
// filesystem.
type LocalFS struct{}

// List returns the entries of a local directory.
func (LocalFS) List(location string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(location)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, e := range dirEntries {
		entries = append(entries, Entry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return entries, nil
}

// ReadFile reads a local file's contents.
func (LocalFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
