package scenario

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequenceDiff(t *testing.T) {
	tests := []struct {
		name      string
		want, got []string
		expected  string
	}{
		{"equal", []string{"a", "b"}, []string{"a", "b"}, "a b"},
		{"missing", []string{"t1", "t2", "t3"}, []string{"t1", "t3"}, "t1 -t2 t3"},
		{"extra", []string{"t1"}, []string{"t1", "t1"}, "t1 +t1"},
		{"nothing received", []string{"e1"}, nil, "-e1"},
		{"nothing expected", nil, []string{"e1"}, "+e1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, sequenceDiff(tt.want, tt.got))
		})
	}
}
