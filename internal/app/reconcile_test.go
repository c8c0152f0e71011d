package app

import "testing"

func TestDiverge(t *testing.T) {
	tests := []struct {
		name         string
		local        string
		remote       string
		wantDiverged bool
		wantIns      int
		wantDel      int
	}{
		{"identical", "# Title\nbody", "# Title\nbody", false, 0, 0},
		{"appended", "abc", "abcdef", true, 3, 0},
		{"truncated", "abcdef", "abc", true, 0, 3},
		{"multibyte", "the café is open", "the cafe is open", true, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, diverged := Diverge(tt.local, tt.remote)
			if diverged != tt.wantDiverged {
				t.Fatalf("diverged = %v, want %v", diverged, tt.wantDiverged)
			}
			if d.Inserted != tt.wantIns || d.Deleted != tt.wantDel {
				t.Errorf("Diverge() = %+v, want +%d -%d", d, tt.wantIns, tt.wantDel)
			}
		})
	}
}
