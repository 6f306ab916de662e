package semver

import (
	"testing"
)

func TestParseMajor(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   uint8
		wantOk bool
	}{
		{name: "single digit", input: "1", want: 1, wantOk: true},
		{name: "zero", input: "0", want: 0, wantOk: true},
		{name: "two digits", input: "12", want: 12, wantOk: true},
		{name: "highest", input: "254", want: 254, wantOk: true},
		{name: "sentinel rejected", input: "255", wantOk: false},
		{name: "overflow", input: "999", wantOk: false},
		{name: "empty", input: "", wantOk: false},
		{name: "prefixed", input: "v2", wantOk: false},
		{name: "dotted", input: "2.0", wantOk: false},
		{name: "negative", input: "-1", wantOk: false},
		{name: "word", input: "ping", wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMajor(tt.input)
			if ok != tt.wantOk {
				t.Fatalf("semver:parser_test - ParseMajor(%q) ok = %v, want %v", tt.input, ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("semver:parser_test - ParseMajor(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsMajorOnly(t *testing.T) {
	if !IsMajorOnly("3") {
		t.Error("semver:parser_test - expected 3 to be major-only")
	}
	if IsMajorOnly("^3") {
		t.Error("semver:parser_test - expected ^3 not to be major-only")
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "caret", expr: "^2"},
		{name: "hyphen", expr: "1 - 3"},
		{name: "comparison", expr: ">=2, <5"},
		{name: "major only", expr: "4"},
		{name: "or", expr: "1 || 3"},
		{name: "empty", expr: "  ", wantErr: true},
		{name: "garbage", expr: "not-a-range", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseRange(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("semver:parser_test - expected error for %q", tt.expr)
				}
				return
			}
			if err != nil {
				t.Fatalf("semver:parser_test - unexpected error for %q: %v", tt.expr, err)
			}
			if c == nil {
				t.Fatalf("semver:parser_test - nil constraint for %q", tt.expr)
			}
		})
	}
}
