// Package inference scores feature rows with an ONNX classifier through ONNX
// Runtime, producing the class probabilities a cutoff search consumes.
package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// IONames names the model's feature input and probability output.
type IONames struct {
	Input  string
	Output string
}

// DefaultIONames matches classifiers exported by skl2onnx with zipmap disabled.
func DefaultIONames() IONames {
	return IONames{Input: "float_input", Output: "probabilities"}
}

// Session wraps an ONNX Runtime session for classifier inference.
type Session struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a model file.
func NewSession(modelPath string, names IONames) (*Session, error) {
	// Check file exists
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }() // Cleanup error doesn't affect success

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{names.Input},
		[]string{names.Output},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session}, nil
}

// Infer runs the model on a row-major batch of rows x cols features and
// returns row-major probabilities with one column per class.
func (s *Session) Infer(ctx context.Context, features []float32, rows, cols int) (probs []float32, classes int, err error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}

	if rows <= 0 || cols <= 0 || len(features) != rows*cols {
		return nil, 0, fmt.Errorf("feature batch is %d values, want %d x %d", len(features), rows, cols)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, 0, fmt.Errorf("session is closed")
	}

	input, err := ort.NewTensor(ort.NewShape(int64(rows), int64(cols)), features)
	if err != nil {
		return nil, 0, fmt.Errorf("creating input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	// nil entries are allocated by Run
	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, 0, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, 0, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, fmt.Errorf("unexpected output tensor type")
	}

	shape := out.GetShape()
	if len(shape) != 2 || shape[0] != int64(rows) {
		return nil, 0, fmt.Errorf("unexpected output shape %v for %d rows", shape, rows)
	}
	classes = int(shape[1])

	probs = make([]float32, rows*classes)
	copy(probs, out.GetData())
	return probs, classes, nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
