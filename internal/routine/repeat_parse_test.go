package routine

import (
	"testing"
	"time"
)

func TestParseRepeat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    RepeatSpec
		wantErr bool
	}{
		{in: "daily", want: RepeatSpec{Kind: RepeatDaily, Times: 1}},
		{in: "daily x3", want: RepeatSpec{Kind: RepeatDaily, Times: 3}},
		{in: "repeat: daily", want: RepeatSpec{Kind: RepeatDaily, Times: 1}},
		{in: "every 2h", want: RepeatSpec{Kind: RepeatPeriod, Every: 2 * time.Hour, Times: 1}},
		{in: "every 90m x2", want: RepeatSpec{Kind: RepeatPeriod, Every: 90 * time.Minute, Times: 2}},
		{in: "every 01:30", want: RepeatSpec{Kind: RepeatPeriod, Every: 90 * time.Minute, Times: 1}},
		{in: "08:00-10:00", want: RepeatSpec{Kind: RepeatWindow, Window: Window{Start: At(8, 0, 0), End: At(10, 0, 0)}, Times: 1}},
		{in: "08:00 - 10:30 X2", want: RepeatSpec{Kind: RepeatWindow, Window: Window{Start: At(8, 0, 0), End: At(10, 30, 0)}, Times: 2}},
		{in: "", wantErr: true},
		{in: "daily x0", wantErr: true},
		{in: "every 0m", wantErr: true},
		{in: "every soon", wantErr: true},
		{in: "08:00-25:00", wantErr: true},
		{in: "weekly", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseRepeat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseRepeat(%q) expected error, got %+v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRepeat(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseRepeat(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestRepeatSpecApply(t *testing.T) {
	t.Parallel()

	spec, err := ParseRepeat("every 2h")
	if err != nil {
		t.Fatalf("ParseRepeat: %v", err)
	}
	b := spec.Apply(NewBuilder(At(8, 0, 0), At(18, 0, 0)), []Task{patrol(30 * time.Minute)})
	if n := len(b.Routines()); n != 5 {
		t.Fatalf("got %d routines, want 5", n)
	}
}
