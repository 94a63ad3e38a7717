package embeddings

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Embedder produces one vector per input. llm.Ollama satisfies it.
type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float64, error)
}

// Cache stores vectors as little-endian float64 files named by a hash of
// the model and text, so unchanged history entries are embedded once.
type Cache struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// NewCache returns a cache rooted at dir
func NewCache(fs afero.Fs, dir string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{fs: fs, dir: dir, logger: logger}
}

func (c *Cache) path(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".bin")
}

// Get returns the cached vector for text, if any. Corrupt entries are
// treated as misses.
func (c *Cache) Get(model, text string) ([]float64, bool) {
	data, err := afero.ReadFile(c.fs, c.path(model, text))
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Debug("failed to read cached embedding", zap.Error(err))
		}
		return nil, false
	}
	vec, err := decode(data)
	if err != nil {
		c.logger.Debug("discarding corrupt cached embedding", zap.Error(err))
		return nil, false
	}
	return vec, true
}

// Put stores vec for text
func (c *Cache) Put(model, text string, vec []float64) error {
	if err := Validate(vec); err != nil {
		return err
	}
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create embedding cache: %w", err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, vec); err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.path(model, text), buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write embedding: %w", err)
	}
	return nil
}

func decode(data []byte) ([]float64, error) {
	if len(data) == 0 || len(data)%8 != 0 {
		return nil, fmt.Errorf("invalid embedding size: %d", len(data))
	}
	vec := make([]float64, len(data)/8)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vec, Validate(vec)
}

// Vectors returns one vector per text. Cache hits are reused and all misses
// are embedded in a single request. A nil cache disables caching.
func Vectors(ctx context.Context, e Embedder, c *Cache, model string, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var (
		missing []string
		index   []int
	)
	for i, t := range texts {
		if c != nil {
			if vec, ok := c.Get(model, t); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, t)
		index = append(index, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := e.Embed(ctx, model, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(vecs))
	}
	for j, vec := range vecs {
		out[index[j]] = vec
		if c != nil {
			if err := c.Put(model, missing[j], vec); err != nil {
				c.logger.Debug("failed to cache embedding", zap.Error(err))
			}
		}
	}
	return out, nil
}
