package correction

import (
	"context"
	"errors"
	"testing"
)

func TestAttempt_Success(t *testing.T) {
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		return "Buenos días", nil
	})

	out := Attempt(context.Background(), c, Request{Text: "buenos dias"})
	if !out.OK || out.Err != nil {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Text != "Buenos días" {
		t.Errorf("expected corrected text, got %q", out.Text)
	}
}

func TestAttempt_FailuresFallBackToInput(t *testing.T) {
	boom := errors.New("rate limited")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name      string
		ctx       context.Context
		corrector CorrectorFunc
		wantErr   error
	}{
		{
			name: "collaborator error",
			ctx:  context.Background(),
			corrector: func(ctx context.Context, req Request) (string, error) {
				return "", boom
			},
			wantErr: boom,
		},
		{
			name: "blank reply",
			ctx:  context.Background(),
			corrector: func(ctx context.Context, req Request) (string, error) {
				return "  \n ", nil
			},
			wantErr: ErrEmptyCorrection,
		},
		{
			name: "cancelled before call",
			ctx:  cancelled,
			corrector: func(ctx context.Context, req Request) (string, error) {
				t.Error("corrector must not be called with a cancelled context")
				return "x", nil
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Attempt(tt.ctx, tt.corrector, Request{Text: "original"})
			if out.OK {
				t.Fatal("expected failure")
			}
			if out.Text != "original" {
				t.Errorf("expected fallback to input, got %q", out.Text)
			}
			if !errors.Is(out.Err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, out.Err)
			}
		})
	}
}

func TestAttempt_RecoversPanic(t *testing.T) {
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		panic("nil map")
	})

	out := Attempt(context.Background(), c, Request{Text: "original"})
	if out.OK {
		t.Fatal("expected failure after panic")
	}
	if out.Text != "original" {
		t.Errorf("expected fallback to input, got %q", out.Text)
	}
	if out.Err == nil {
		t.Error("expected an error describing the panic")
	}
}
