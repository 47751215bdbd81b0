package modelstore

import (
	"encoding/gob"
	"fmt"
	"io"
)

// SimilarityMatrix 电影两两之间的内容相似度，按电影表行号索引，行优先存储
type SimilarityMatrix struct {
	N      int
	Values []float32
}

// NewSimilarityMatrix 从二维切片构造（主要用于测试与 CLI）
func NewSimilarityMatrix(rows [][]float32) (*SimilarityMatrix, error) {
	n := len(rows)
	m := &SimilarityMatrix{N: n, Values: make([]float32, 0, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), n)
		}
		m.Values = append(m.Values, row...)
	}
	return m, nil
}

// Size 矩阵阶数
func (m *SimilarityMatrix) Size() int {
	return m.N
}

// Row 第 i 行（共享底层数组，调用方不得修改）
func (m *SimilarityMatrix) Row(i int) []float32 {
	return m.Values[i*m.N : (i+1)*m.N]
}

// At 第 i 行第 j 列
func (m *SimilarityMatrix) At(i, j int) float32 {
	return m.Values[i*m.N+j]
}

func (m *SimilarityMatrix) validate() error {
	if m.N <= 0 {
		return fmt.Errorf("similarity matrix is empty")
	}
	if len(m.Values) != m.N*m.N {
		return fmt.Errorf("similarity matrix has %d values, want %d", len(m.Values), m.N*m.N)
	}
	return nil
}

// DecodeSimilarity 读取 gob 编码的相似度矩阵
func DecodeSimilarity(r io.Reader) (*SimilarityMatrix, error) {
	var m SimilarityMatrix
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode similarity matrix: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeSimilarity 写出 gob 编码的相似度矩阵
func EncodeSimilarity(w io.Writer, m *SimilarityMatrix) error {
	return gob.NewEncoder(w).Encode(m)
}
