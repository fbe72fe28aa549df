package checkpoint

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/c2h5oh/datasize"
)

// FormatVersion is the current checkpoint file version.
const FormatVersion = 1

// DefaultMaxSize bounds the decompressed payload accepted by Read.
const DefaultMaxSize = 64 * datasize.MB

// Header is the plain-text first line of a checkpoint file. It can be read
// without decompressing the payload.
type Header struct {
	Version      int               `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	Checksum     string            `json:"checksum"`
	SimTime      float64           `json:"sim_time"`
	NeuronCount  int               `json:"neuron_count"`
	SynapseCount int               `json:"synapse_count"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Write stores c at path as a header line followed by a gzip-compressed
// JSON payload.
func Write(path string, c *Checkpoint) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:      FormatVersion,
		CreatedAt:    c.CreatedAt,
		Checksum:     checksum(compressed.Bytes()),
		SimTime:      c.Time,
		NeuronCount:  c.NeuronCount,
		SynapseCount: len(c.Synapses),
		Metadata:     c.Metadata,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return f.Close()
}

// Read loads a checkpoint, verifying the payload checksum.
func Read(path string) (*Checkpoint, error) {
	return ReadWithLimit(path, DefaultMaxSize)
}

// ReadWithLimit is Read with a custom bound on the decompressed payload.
func ReadWithLimit(path string, maxSize datasize.ByteSize) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	compressedData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(compressedData); actual != header.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	limit := int64(maxSize.Bytes())
	decompressed, err := io.ReadAll(io.LimitReader(gzr, limit+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > limit {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %s", maxSize.HumanReadable())
	}

	var c Checkpoint
	if err := json.Unmarshal(decompressed, &c); err != nil {
		return nil, fmt.Errorf("parsing checkpoint data: %w", err)
	}
	return &c, nil
}

// ReadHeader reads only the header line.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d (want %d)", header.Version, FormatVersion)
	}
	return &header, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
