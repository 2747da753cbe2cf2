// Package codec serializes the two persisted index artifacts: the vector
// matrix as a flat little-endian float32 file and the document bundle
// (texts + metadata) as a bbolt database. Both are required to reload an
// index; loading fails cleanly when either is missing or when they disagree
// on corpus size.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

// Vector file header (v1):
//
//	0..7   magic "MKTVEC01"
//	8..11  dim (uint32)
//	12..15 count (uint32)
const headerSize = 16

var fileMagic = [8]byte{'M', 'K', 'T', 'V', 'E', 'C', '0', '1'}

var (
	bucketDocs = []byte("documents")
	bucketMeta = []byte("meta")
	keyCount   = []byte("count")
	keyDim     = []byte("dim")
)

// WriteVectors serializes the vector matrix to path.
func WriteVectors(path string, dim int, vectors [][]float32) error {
	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(vectors)*dim*4))
	buf.Write(fileMagic[:])

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(dim))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(vectors)))
	buf.Write(header[:])

	var scratch [4]byte
	for _, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("vector length %d does not match dim %d: %w",
				len(vec), dim, domain.ErrDimensionMismatch)
		}
		for _, f := range vec {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(f))
			buf.Write(scratch[:])
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write vector file: %w", err)
	}
	return nil
}

// ReadVectors deserializes the vector matrix from path.
func ReadVectors(path string) (dim int, vectors [][]float32, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, fmt.Errorf("vector file %s: %w", path, domain.ErrNotFound)
		}
		return 0, nil, fmt.Errorf("read vector file: %w", err)
	}

	if len(data) < headerSize || !bytes.Equal(data[:8], fileMagic[:]) {
		return 0, nil, fmt.Errorf("vector file %s: bad header: %w", path, domain.ErrCorruptIndex)
	}

	dim = int(binary.LittleEndian.Uint32(data[8:12]))
	count := int(binary.LittleEndian.Uint32(data[12:16]))
	body := data[headerSize:]

	if dim < 0 || count < 0 || len(body) != count*dim*4 {
		return 0, nil, fmt.Errorf("vector file %s: %d bytes for %d vectors of dim %d: %w",
			path, len(body), count, dim, domain.ErrCorruptIndex)
	}

	vectors = make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		off := i * dim * 4
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off+j*4:]))
		}
		vectors[i] = vec
	}
	return dim, vectors, nil
}

// WriteDocuments serializes the document bundle to a bbolt file at path.
// Any existing bundle at path is replaced.
func WriteDocuments(path string, dim int, docs []domain.Document) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace document bundle: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("open document bundle: %w", err)
	}
	defer db.Close()

	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketDocs)
		if err != nil {
			return fmt.Errorf("create documents bucket: %w", err)
		}
		for i, doc := range docs {
			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal document %d: %w", i, err)
			}
			if err := b.Put(positionKey(i), data); err != nil {
				return fmt.Errorf("put document %d: %w", i, err)
			}
		}

		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		if err := meta.Put(keyCount, u64bytes(uint64(len(docs)))); err != nil {
			return fmt.Errorf("put count: %w", err)
		}
		if err := meta.Put(keyDim, u64bytes(uint64(dim))); err != nil {
			return fmt.Errorf("put dim: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write document bundle: %w", err)
	}
	return nil
}

// ReadDocuments deserializes the document bundle from path. Documents come
// back in insertion order; dim is the embedding dimension recorded at save
// time, cross-checked against the vector artifact by the caller.
func ReadDocuments(path string) (dim int, docs []domain.Document, err error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, nil, fmt.Errorf("document bundle %s: %w", path, domain.ErrNotFound)
	}

	db, err := bbolt.Open(path, 0o400, &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return 0, nil, fmt.Errorf("open document bundle: %w", err)
	}
	defer db.Close()

	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		b := tx.Bucket(bucketDocs)
		if meta == nil || b == nil {
			return fmt.Errorf("document bundle %s: missing buckets: %w", path, domain.ErrCorruptIndex)
		}

		count := int(u64value(meta.Get(keyCount)))
		dim = int(u64value(meta.Get(keyDim)))

		docs = make([]domain.Document, 0, count)
		for i := 0; i < count; i++ {
			data := b.Get(positionKey(i))
			if data == nil {
				return fmt.Errorf("document bundle %s: missing document %d: %w",
					path, i, domain.ErrCorruptIndex)
			}
			var doc domain.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("unmarshal document %d: %w", i, err)
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return dim, docs, nil
}

func positionKey(i int) []byte {
	return u64bytes(uint64(i))
}

func u64bytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func u64value(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
