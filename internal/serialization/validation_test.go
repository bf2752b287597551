package serialization

import (
	"errors"
	"strings"
	"testing"
)

// TestValidateTensorOffsets covers valid layouts and each rejection kind.
func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantErr  error
	}{
		{
			name: "adjacent regions",
			tensors: []TensorMeta{
				{Name: "bias", Offset: 0, Size: 16},
				{Name: "weight", Offset: 16, Size: 144},
			},
			dataSize: 160,
		},
		{
			name: "overlap by one byte",
			tensors: []TensorMeta{
				{Name: "bias", Offset: 0, Size: 17},
				{Name: "weight", Offset: 16, Size: 144},
			},
			dataSize: 160,
			wantErr:  ErrOffsetOverlap,
		},
		{
			name:     "beyond data section",
			tensors:  []TensorMeta{{Name: "weight", Offset: 100, Size: 100}},
			dataSize: 150,
			wantErr:  ErrOutOfBounds,
		},
		{
			name:     "negative offset",
			tensors:  []TensorMeta{{Name: "weight", Offset: -1, Size: 10}},
			dataSize: 100,
			wantErr:  ErrNegativeOffset,
		},
		{
			name:     "negative size",
			tensors:  []TensorMeta{{Name: "weight", Offset: 0, Size: -10}},
			dataSize: 100,
			wantErr:  ErrNegativeOffset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got: %v", tt.wantErr, err)
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}
		})
	}
}

// TestValidateTensorOffsets_TooManyTensors rejects oversized tensor lists.
func TestValidateTensorOffsets_TooManyTensors(t *testing.T) {
	tensors := make([]TensorMeta, MaxTensorCount+1)
	err := ValidateTensorOffsets(tensors, 0)
	if !errors.Is(err, ErrTooManyTensors) {
		t.Errorf("Expected ErrTooManyTensors, got: %v", err)
	}
}

// TestValidateTensorName checks accepted and rejected names.
func TestValidateTensorName(t *testing.T) {
	valid := []string{"weight", "bias", "dw1.weight", "layer_0.bias"}
	for _, name := range valid {
		if err := ValidateTensorName(name); err != nil {
			t.Errorf("ValidateTensorName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"../weight",
		"a/b",
		`a\b`,
		"null\x00byte",
		metadataKey,
		strings.Repeat("w", MaxTensorNameLen+1),
	}
	for _, name := range invalid {
		if err := ValidateTensorName(name); !errors.Is(err, ErrInvalidTensorName) {
			t.Errorf("ValidateTensorName(%q) = %v, want ErrInvalidTensorName", name, err)
		}
	}
}

// TestValidationError_ErrorMessages checks message formatting.
func TestValidationError_ErrorMessages(t *testing.T) {
	tests := []struct {
		err  *ValidationError
		want []string
	}{
		{
			err:  &ValidationError{Kind: ErrOutOfBounds, Tensor: "weight", Details: "offset 1"},
			want: []string{"beyond data section", `"weight"`, "offset 1"},
		},
		{
			err:  &ValidationError{Kind: ErrOffsetOverlap, Tensor: "a", Tensor2: "b", Details: "x"},
			want: []string{"overlap", `"a"`, `"b"`},
		},
		{
			err:  &ValidationError{Kind: ErrTooManyTensors, Details: "got 5"},
			want: []string{"too many tensors", "got 5"},
		},
	}

	for _, tt := range tests {
		msg := tt.err.Error()
		for _, part := range tt.want {
			if !strings.Contains(msg, part) {
				t.Errorf("Error() = %q, missing %q", msg, part)
			}
		}
	}
}

// FuzzValidateTensorName ensures name validation never panics.
func FuzzValidateTensorName(f *testing.F) {
	f.Add("weight")
	f.Add("../../etc/passwd")
	f.Add("\x00")
	f.Fuzz(func(_ *testing.T, name string) {
		_ = ValidateTensorName(name)
	})
}
