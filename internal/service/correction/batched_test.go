package correction

import (
	"reflect"
	"testing"
)

func TestJoinBatch(t *testing.T) {
	if got := JoinBatch([]string{"a", "b", "c"}, "|||"); got != "a ||| b ||| c" {
		t.Errorf("unexpected join %q", got)
	}
	if got := JoinBatch([]string{"solo"}, "|||"); got != "solo" {
		t.Errorf("single text should not carry a separator, got %q", got)
	}
}

func TestSplitReply_TrimsPieces(t *testing.T) {
	got := SplitReply("  A |||B|||   C  ", "|||")
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestApplyReply_FailClosed(t *testing.T) {
	originals := []string{"a", "b", "c"}

	got, reason := ApplyReply(originals, "A ||| B", "|||")
	if reason != ReasonCountMismatch {
		t.Errorf("expected count mismatch, got %q", reason)
	}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("batch must keep its originals, got %v", got)
	}
}

func TestApplyReply(t *testing.T) {
	tests := []struct {
		name      string
		originals []string
		reply     string
		want      []string
		reason    DiscardReason
	}{
		{
			name:      "applied 1:1",
			originals: []string{"como estas", "bien gracias"},
			reply:     "¿Cómo estás? ||| Bien, gracias.",
			want:      []string{"¿Cómo estás?", "Bien, gracias."},
			reason:    ReasonNone,
		},
		{
			name:      "extra separator",
			originals: []string{"a", "b"},
			reply:     "A ||| B ||| C",
			want:      []string{"a", "b"},
			reason:    ReasonCountMismatch,
		},
		{
			name:      "blank piece",
			originals: []string{"a", "b"},
			reply:     "A |||   ",
			want:      []string{"a", "b"},
			reason:    ReasonEmptyPiece,
		},
		{
			name:      "four pipes leave a stray pipe",
			originals: []string{"a", "b", "c"},
			reply:     "A |||| B ||| C",
			want:      []string{"a", "b", "c"},
			reason:    ReasonMangledSeparator,
		},
		{
			name:      "stray pipe at piece end",
			originals: []string{"a", "b"},
			reply:     "A| ||| B",
			want:      []string{"a", "b"},
			reason:    ReasonMangledSeparator,
		},
		{
			name:      "pipe already in original",
			originals: []string{"|a", "b"},
			reply:     "|A ||| B",
			want:      []string{"|A", "B"},
			reason:    ReasonNone,
		},
		{
			name:      "blank original may stay blank",
			originals: []string{"a", ""},
			reply:     "A ||| ",
			want:      []string{"A", ""},
			reason:    ReasonNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ApplyReply(tt.originals, tt.reply, "|||")
			if reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, reason)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestContainsSeparator(t *testing.T) {
	if !containsSeparator([]string{"ok", "a ||| b"}, "|||") {
		t.Error("expected separator to be detected")
	}
	if containsSeparator([]string{"ok", "a | b"}, "|||") {
		t.Error("single pipe is not the separator")
	}
}
