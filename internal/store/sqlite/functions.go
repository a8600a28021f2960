// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/mattn/go-sqlite3"
)

const (
	// driverName is a go-sqlite3 driver whose connections carry the
	// vecmem_* functions.
	driverName = "sqlite3_vecmem"

	// cosineFunc is the SQL name of the native similarity function.
	cosineFunc = "vecmem_cosine"

	// lowerFunc folds text with Unicode rules. SQLite's LOWER only folds ASCII.
	lowerFunc = "vecmem_lower"
)

var (
	driverOnce    sync.Once
	extensionOnce sync.Once
)

func registerDriver() {
	driverOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if err := conn.RegisterFunc(cosineFunc, cosineSimilarity, true); err != nil {
					return err
				}
				return conn.RegisterFunc(lowerFunc, strings.ToLower, true)
			},
		})
	})
}

// loadExtension registers sqlite-vec as an auto extension. It only affects
// connections opened afterwards.
func loadExtension() {
	extensionOnce.Do(sqlite_vec.Auto)
}

// cosineSimilarity is the body of vecmem_cosine(a, b) over float32 BLOBs.
// A zero-magnitude operand scores 0 so threshold filtering drops it.
func cosineSimilarity(a, b []byte) (float64, error) {
	va, err := decodeEmbedding(a)
	if err != nil {
		return 0, err
	}
	vb, err := decodeEmbedding(b)
	if err != nil {
		return 0, err
	}
	if len(va) != len(vb) {
		return 0, fmt.Errorf("%s: dimension mismatch %d vs %d", cosineFunc, len(va), len(vb))
	}

	var dot, na2, nb2 float64
	for i := range va {
		x, y := float64(va[i]), float64(vb[i])
		dot += x * y
		na2 += x * x
		nb2 += y * y
	}
	if na2 == 0 || nb2 == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}

func encodeEmbedding(v []float32) ([]byte, error) {
	return sqlite_vec.SerializeFloat32(v)
}

// decodeEmbedding reverses encodeEmbedding: little-endian float32 values
// with no length prefix.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
