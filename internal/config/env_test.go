package config

import "testing"

func TestString(t *testing.T) {
	t.Setenv(EnvOutput, "/tmp/gaze.json")
	if got := String(EnvOutput, "eye_gaze.json"); got != "/tmp/gaze.json" {
		t.Errorf("String = %q, want /tmp/gaze.json", got)
	}

	t.Setenv(EnvOutput, "")
	if got := String(EnvOutput, "eye_gaze.json"); got != "eye_gaze.json" {
		t.Errorf("String = %q, want default", got)
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 0},
		{"valid", "2", 2},
		{"garbage", "two", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvCamera, tt.value)
			if got := Int(EnvCamera, 0); got != tt.want {
				t.Errorf("Int = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("GAZE_TEST_ALPHA", "0.25")
	if got := Float("GAZE_TEST_ALPHA", 0.15); got != 0.25 {
		t.Errorf("Float = %v, want 0.25", got)
	}

	t.Setenv("GAZE_TEST_ALPHA", "fast")
	if got := Float("GAZE_TEST_ALPHA", 0.15); got != 0.15 {
		t.Errorf("Float = %v, want default 0.15", got)
	}
}
