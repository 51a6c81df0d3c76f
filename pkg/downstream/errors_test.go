package downstream

import (
	"errors"
	"fmt"
	"testing"
)

func TestFault_Error(t *testing.T) {
	tests := []struct {
		name  string
		fault *Fault
		want  string
	}{
		{
			name: "without wrapped error",
			fault: &Fault{
				Target:     "task",
				Class:      ClassTransient,
				StatusCode: 503,
				Message:    "upstream unavailable",
			},
			want: "task transient fault (status 503): upstream unavailable",
		},
		{
			name: "with wrapped error",
			fault: &Fault{
				Target:  "auth",
				Class:   ClassTimeout,
				Message: "downstream call timed out",
				Err:     errors.New("context deadline exceeded"),
			},
			want: "auth timeout fault (status 0): downstream call timed out: context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fault.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFault_Retryable(t *testing.T) {
	tests := []struct {
		class Class
		want  bool
	}{
		{ClassTransient, true},
		{ClassTimeout, true},
		{ClassCircuitOpen, false},
		{ClassClient, false},
		{ClassUnclassified, false},
		{Class("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			f := &Fault{Class: tt.class}
			if got := f.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsFault(t *testing.T) {
	fault := &Fault{Target: "task", Class: ClassTransient}

	wrapped := fmt.Errorf("call failed: %w", fault)
	got, ok := AsFault(wrapped)
	if !ok {
		t.Fatal("AsFault should find a wrapped fault")
	}
	if got != fault {
		t.Error("AsFault returned a different fault")
	}

	if _, ok := AsFault(errors.New("plain")); ok {
		t.Error("AsFault should not match a plain error")
	}
}

func TestFault_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	fault := &Fault{Class: ClassTransient, Err: inner}

	if !errors.Is(fault, inner) {
		t.Error("errors.Is should reach the wrapped error")
	}
}
