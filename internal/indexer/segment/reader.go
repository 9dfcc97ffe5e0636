package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
)

type Reader struct {
	file     *os.File
	filePath string
	header   SnapshotHeader
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		f.Close()
		return nil, fmt.Errorf("invalid snapshot file: bad magic bytes %x", magic)
	}
	header := SnapshotHeader{
		Magic:       magic,
		Version:     binary.LittleEndian.Uint32(headerBytes[4:8]),
		RecordCount: binary.LittleEndian.Uint32(headerBytes[8:12]),
		ModelCount:  binary.LittleEndian.Uint32(headerBytes[12:16]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		Generation:  binary.LittleEndian.Uint64(headerBytes[24:32]),
		DataOffset:  int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		DataSize:    int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
	}
	if header.Version != FormatVersion {
		f.Close()
		return nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}
	return &Reader{file: f, filePath: path, header: header}, nil
}

// Header returns the decoded header.
func (r *Reader) Header() SnapshotHeader {
	return r.header
}

// Read loads and verifies the payload.
func (r *Reader) Read() (*Snapshot, error) {
	payload := make([]byte, r.header.DataSize)
	if _, err := r.file.ReadAt(payload, r.header.DataOffset); err != nil {
		return nil, fmt.Errorf("reading snapshot payload: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := r.file.ReadAt(footer, r.header.DataOffset+r.header.DataSize); err != nil {
		return nil, fmt.Errorf("reading snapshot footer: %w", err)
	}
	want := binary.LittleEndian.Uint32(footer[0:4])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return nil, fmt.Errorf("snapshot %s: checksum mismatch (got %08x, want %08x)", r.filePath, got, want)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot payload: %w", err)
	}
	if len(snap.Records) != int(r.header.RecordCount) {
		return nil, fmt.Errorf("snapshot %s: header says %d records, payload has %d", r.filePath, r.header.RecordCount, len(snap.Records))
	}
	return &snap, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// Latest reads the newest snapshot in dir. It returns nil, nil when the
// directory holds none.
func Latest(dir string) (*Snapshot, string, error) {
	paths, err := List(dir)
	if err != nil || len(paths) == 0 {
		return nil, "", err
	}
	path := paths[len(paths)-1]
	r, err := OpenReader(path)
	if err != nil {
		return nil, path, err
	}
	defer r.Close()
	snap, err := r.Read()
	return snap, path, err
}
