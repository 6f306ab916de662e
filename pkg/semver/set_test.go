package semver

import (
	"reflect"
	"testing"
)

func TestVersions_Contains(t *testing.T) {
	set := Versions(2, 1, 2, AnyMajor)

	if !set.Contains(1) || !set.Contains(2) {
		t.Errorf("semver:set_test - expected 1 and 2 in %s", set)
	}
	if set.Contains(3) {
		t.Errorf("semver:set_test - did not expect 3 in %s", set)
	}
	if set.Contains(AnyMajor) {
		t.Error("semver:set_test - AnyMajor must never be a member")
	}
	if got := set.List(); !reflect.DeepEqual(got, []uint8{1, 2}) {
		t.Errorf("semver:set_test - List() = %v, want [1 2]", got)
	}
	if set.String() != "[1 2]" {
		t.Errorf("semver:set_test - String() = %q, want %q", set.String(), "[1 2]")
	}
}

func TestRange_Contains(t *testing.T) {
	tests := []struct {
		expr string
		in   []uint8
		out  []uint8
	}{
		{expr: "1 - 3", in: []uint8{1, 2, 3}, out: []uint8{0, 4}},
		{expr: "^2", in: []uint8{2}, out: []uint8{1, 3}},
		{expr: ">=2, <5", in: []uint8{2, 3, 4}, out: []uint8{1, 5}},
		{expr: "4", in: []uint8{4}, out: []uint8{3, 5}},
		{expr: "1 || 3", in: []uint8{1, 3}, out: []uint8{2}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			set, err := Range(tt.expr)
			if err != nil {
				t.Fatalf("semver:set_test - Range(%q) failed: %v", tt.expr, err)
			}
			for _, m := range tt.in {
				if !set.Contains(m) {
					t.Errorf("semver:set_test - %q should contain %d", tt.expr, m)
				}
			}
			for _, m := range tt.out {
				if set.Contains(m) {
					t.Errorf("semver:set_test - %q should not contain %d", tt.expr, m)
				}
			}
			if set.String() != tt.expr {
				t.Errorf("semver:set_test - String() = %q, want %q", set.String(), tt.expr)
			}
		})
	}
}

func TestRange_List(t *testing.T) {
	set := MustRange("1 - 3")
	if got := set.List(); !reflect.DeepEqual(got, []uint8{1, 2, 3}) {
		t.Errorf("semver:set_test - List() = %v, want [1 2 3]", got)
	}
	if set.IsEmpty() {
		t.Error("semver:set_test - expected non-empty set")
	}
}

func TestVersions_Empty(t *testing.T) {
	if !Versions().IsEmpty() {
		t.Error("semver:set_test - expected empty set")
	}
}

func TestMustRange_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("semver:set_test - expected panic for invalid range")
		}
	}()
	MustRange("not-a-range")
}
