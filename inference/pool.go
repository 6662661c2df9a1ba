package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("inference: pool closed")

// Pool manages a pool of ONNX sessions for concurrent scoring.
type Pool struct {
	sessions  chan *Session
	modelPath string
	size      int
	mu        sync.Mutex
	closed    bool
}

// NewPool creates a pool of n ONNX sessions.
func NewPool(modelPath string, size int, names IONames) (*Pool, error) {
	if size <= 0 {
		size = 1
	}

	pool := &Pool{
		sessions:  make(chan *Session, size),
		modelPath: modelPath,
		size:      size,
	}

	for i := 0; i < size; i++ {
		session, err := NewSession(modelPath, names)
		if err != nil {
			_ = pool.Close() // Best-effort cleanup; original error takes precedence
			return nil, fmt.Errorf("creating session %d: %w", i, err)
		}
		pool.sessions <- session
	}

	return pool, nil
}

// Acquire gets a session from the pool, blocking if none available.
// Respects context cancellation. Returns error if pool is closed.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case session, ok := <-p.sessions:
		if !ok {
			return nil, ErrPoolClosed
		}
		return session, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a session to the pool.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = s.Close() // Pool closed; clean up session
		return
	}
	p.mu.Unlock()

	select {
	case p.sessions <- s:
	default:
		_ = s.Close() // Pool full; clean up excess session
	}
}

// Predict scores every feature row and returns a samples x classes matrix
// of probabilities, ready for cutoff.FindMulticlassMatrix or cutoff.FindColumn.
func (p *Pool) Predict(ctx context.Context, features [][]float32) (*mat.Dense, error) {
	batch, rows, cols, err := flatten(features)
	if err != nil {
		return nil, err
	}

	session, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(session)

	probs, classes, err := session.Infer(ctx, batch, rows, cols)
	if err != nil {
		return nil, err
	}
	return toDense(probs, rows, classes), nil
}

// Close closes all sessions in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.sessions)

	var errs []error
	for session := range p.sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Size returns the pool size.
func (p *Pool) Size() int {
	return p.size
}

// flatten packs equal-length feature rows into one row-major batch.
func flatten(features [][]float32) (batch []float32, rows, cols int, err error) {
	rows = len(features)
	if rows == 0 {
		return nil, 0, 0, errors.New("no feature rows")
	}
	cols = len(features[0])
	if cols == 0 {
		return nil, 0, 0, errors.New("feature rows are empty")
	}
	batch = make([]float32, 0, rows*cols)
	for i, row := range features {
		if len(row) != cols {
			return nil, 0, 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), cols)
		}
		batch = append(batch, row...)
	}
	return batch, rows, cols, nil
}

func toDense(probs []float32, rows, classes int) *mat.Dense {
	data := make([]float64, len(probs))
	for i, v := range probs {
		data[i] = float64(v)
	}
	return mat.NewDense(rows, classes, data)
}
