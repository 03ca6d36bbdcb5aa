package media

import (
	"sort"
	"testing"
)

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"numeric run beats lexicographic", "ep2", "ep10", true},
		{"reverse of numeric run", "ep10", "ep2", false},
		{"equal strings", "ep1", "ep1", false},
		{"plain lexicographic", "abc", "abd", true},
		{"case insensitive", "Episode 2", "episode 10", true},
		{"prefix sorts first", "ep", "ep1", true},
		{"leading zeros equal value", "ep01", "ep1", true},
		{"multiple digit groups", "s1e9", "s1e10", true},
		{"season boundary", "s1e10", "s2e1", true},
		{"digits vs letters", "1file", "afile", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NaturalLess(tt.a, tt.b); got != tt.want {
				t.Errorf("NaturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNaturalLess_SortOrder(t *testing.T) {
	files := []string{"ep10.mp4", "ep1.mp4", "ep2.mp4"}
	sort.Slice(files, func(i, j int) bool {
		return NaturalLess(files[i], files[j])
	})

	want := []string{"ep1.mp4", "ep2.mp4", "ep10.mp4"}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", files, want)
		}
	}
}
