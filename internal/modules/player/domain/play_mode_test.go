package domain

import "testing"

func TestPlayMode_Next(t *testing.T) {
	mode := PlayModeList
	want := []PlayMode{PlayModeLoop, PlayModeRandom, PlayModeList}

	for i, w := range want {
		mode = mode.Next()
		if mode != w {
			t.Errorf("step %d: expected %v, got %v", i, w, mode)
		}
	}
}

func TestParsePlayMode(t *testing.T) {
	tests := []struct {
		input string
		want  PlayMode
	}{
		{"list", PlayModeList},
		{"loop", PlayModeLoop},
		{"random", PlayModeRandom},
		{"", PlayModeList},
		{"shuffle", PlayModeList},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParsePlayMode(tt.input); got != tt.want {
				t.Errorf("ParsePlayMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
