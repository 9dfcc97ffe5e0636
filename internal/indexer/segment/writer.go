// Package segment reads and writes index snapshot files. A snapshot holds
// the registered model descriptors and every stored document with its
// field values in their marshalled form; loading one re-indexes it.
//
// File layout:
//
//	[64-byte header][JSON payload][32-byte footer]
//
// The footer carries a CRC32 of the payload. Files are written to a .tmp
// path, synced and renamed, so a crash never leaves a torn snapshot behind.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
)

// MagicBytes identifies a valid .scsn snapshot file.
const (
	MagicBytes    uint32 = 0x5343534E
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
	Extension            = ".scsn"
)

// SnapshotHeader is the 64-byte header written at the start of every
// snapshot.
type SnapshotHeader struct {
	Magic       uint32
	Version     uint32
	RecordCount uint32
	ModelCount  uint32
	CreatedAt   int64
	Generation  uint64
	DataOffset  int64
	DataSize    int64
}

// Descriptor is a model's field declaration as persisted.
type Descriptor struct {
	Model  string              `json:"model"`
	Fields []schema.Definition `json:"fields"`
}

// Record is one document. Values are marshalled field encodings; they are
// kept as bytes because float encodings are not valid UTF-8.
type Record struct {
	Model  string              `json:"model"`
	PK     string              `json:"pk"`
	Fields map[string][][]byte `json:"fields"`
}

// Snapshot is the decoded payload.
type Snapshot struct {
	Generation  uint64       `json:"generation"`
	Descriptors []Descriptor `json:"descriptors"`
	Records     []Record     `json:"records"`
}

// Writer writes snapshots into a directory.
type Writer struct {
	dataDir string
	now     func() time.Time
}

// NewWriter creates a Writer that writes snapshots into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir, now: time.Now}
}

// Write atomically creates a new snapshot file and returns its path.
func (w *Writer) Write(snap *Snapshot) (string, error) {
	if snap == nil {
		return "", fmt.Errorf("cannot write nil snapshot")
	}
	created := w.now()
	finalPath := filepath.Join(w.dataDir, fmt.Sprintf("snap_%020d%s", created.UnixNano(), Extension))
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	header := SnapshotHeader{
		Magic:       MagicBytes,
		Version:     FormatVersion,
		RecordCount: uint32(len(snap.Records)),
		ModelCount:  uint32(len(snap.Descriptors)),
		CreatedAt:   created.Unix(),
		Generation:  snap.Generation,
		DataOffset:  int64(HeaderSize),
		DataSize:    int64(len(payload)),
	}
	headerBytes := encodeHeader(header)

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(footer[4:8], header.RecordCount)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(header.DataOffset))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(header.DataSize))
	binary.LittleEndian.PutUint32(footer[24:28], MagicBytes)

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp snapshot file: %w", err)
	}
	cleanup := func(err error) (string, error) {
		f.Close()
		os.Remove(tmpPath)
		return "", err
	}
	for _, chunk := range [][]byte{headerBytes, payload, footer} {
		if _, err := f.Write(chunk); err != nil {
			return cleanup(fmt.Errorf("writing snapshot: %w", err))
		}
	}
	if err := f.Sync(); err != nil {
		return cleanup(fmt.Errorf("syncing snapshot file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming snapshot file: %w", err)
	}
	return finalPath, nil
}

func encodeHeader(h SnapshotHeader) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.RecordCount)
	binary.LittleEndian.PutUint32(b[12:16], h.ModelCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], h.Generation)
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DataOffset))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DataSize))
	return b
}

// List returns the snapshot files in dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Prune deletes all but the newest keep snapshots.
func Prune(dir string, keep int) (int, error) {
	paths, err := List(dir)
	if err != nil {
		return 0, err
	}
	if keep < 1 {
		keep = 1
	}
	removed := 0
	for len(paths) > keep {
		if err := os.Remove(paths[0]); err != nil {
			return removed, fmt.Errorf("pruning snapshot: %w", err)
		}
		paths = paths[1:]
		removed++
	}
	return removed, nil
}
