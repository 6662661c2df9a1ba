package inference

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

const testModelPath = "../testdata/classifier.onnx"

// skipIfNoModel skips the test if the classifier model is not available.
func skipIfNoModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(testModelPath); err != nil {
		t.Skipf("Skipping: model not available at %s", testModelPath)
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	skipIfNoModel(t)

	session, err := NewSession(testModelPath, DefaultIONames())
	if err != nil {
		if isORTUnavailableError(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestNewSession_FileNotFound(t *testing.T) {
	_, err := NewSession("../testdata/nonexistent.onnx", DefaultIONames())
	if err == nil {
		t.Error("expected error for non-existent file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}

func TestSession_Infer(t *testing.T) {
	session := newTestSession(t)

	// Two rows of four iris-style features.
	features := []float32{
		5.1, 3.5, 1.4, 0.2,
		6.7, 3.0, 5.2, 2.3,
	}

	probs, classes, err := session.Infer(context.Background(), features, 2, 4)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if classes < 2 {
		t.Fatalf("expected at least 2 classes, got %d", classes)
	}
	if len(probs) != 2*classes {
		t.Fatalf("expected %d probabilities, got %d", 2*classes, len(probs))
	}

	for row := 0; row < 2; row++ {
		var sum float32
		for c := 0; c < classes; c++ {
			sum += probs[row*classes+c]
		}
		if sum < 0.99 || sum > 1.01 {
			t.Errorf("row %d probabilities sum to %f", row, sum)
		}
	}
}

func TestSession_InferShapeMismatch(t *testing.T) {
	session := newTestSession(t)

	_, _, err := session.Infer(context.Background(), []float32{1, 2, 3}, 2, 4)
	if err == nil {
		t.Error("expected error for short feature batch")
	}
}

func TestSession_InferCancelled(t *testing.T) {
	session := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := session.Infer(ctx, []float32{1, 2, 3, 4}, 1, 4)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSession_InferAfterClose(t *testing.T) {
	session := newTestSession(t)

	if err := session.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second close is a no-op.
	if err := session.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	_, _, err := session.Infer(context.Background(), []float32{1, 2, 3, 4}, 1, 4)
	if err == nil {
		t.Error("expected error after Close")
	}
}

// isORTUnavailableError checks if the error indicates ONNX runtime is not available.
func isORTUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// Common ONNX runtime unavailability indicators
	return strings.Contains(errStr, "onnxruntime") ||
		strings.Contains(errStr, "shared library") ||
		strings.Contains(errStr, "dylib") ||
		strings.Contains(errStr, ".so") ||
		strings.Contains(errStr, ".dll") ||
		strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "cannot open") ||
		strings.Contains(errStr, "initializing ONNX runtime")
}
