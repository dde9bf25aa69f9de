package integrations

import "testing"

func TestLevelNamesStable(t *testing.T) {
	want := map[int]string{
		0: "No Access",
		1: "Read Only",
		2: "Write Only",
		3: "Read/Write",
		4: "Execute Only",
		5: "Read/Execute",
		6: "Write/Execute",
		7: "Full Access",
	}
	for level, name := range want {
		if got := AccessLevel(level).Name(); got != name {
			t.Errorf("level %d name = %q, want %q", level, got, name)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in   int
		want AccessLevel
	}{
		{-100, AccessNone},
		{-1, AccessNone},
		{0, AccessNone},
		{3, AccessReadWrite},
		{7, AccessFull},
		{8, AccessFull},
		{1000, AccessFull},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}

	// Clamping never grants more than Full Access
	if Clamp(255).CanRead() && Clamp(255) != AccessFull {
		t.Error("clamp above 7 must land exactly on Full Access")
	}
}

func TestPermissionBits(t *testing.T) {
	tests := []struct {
		level                  AccessLevel
		read, write, execute bool
	}{
		{AccessNone, false, false, false},
		{AccessReadOnly, true, false, false},
		{AccessWriteOnly, false, true, false},
		{AccessReadWrite, true, true, false},
		{AccessExecuteOnly, false, false, true},
		{AccessReadExecute, true, false, true},
		{AccessWriteExecute, false, true, true},
		{AccessFull, true, true, true},
	}
	for _, tt := range tests {
		if got := tt.level.CanRead(); got != tt.read {
			t.Errorf("%v CanRead = %v, want %v", tt.level, got, tt.read)
		}
		if got := tt.level.CanWrite(); got != tt.write {
			t.Errorf("%v CanWrite = %v, want %v", tt.level, got, tt.write)
		}
		if got := tt.level.CanExecute(); got != tt.execute {
			t.Errorf("%v CanExecute = %v, want %v", tt.level, got, tt.execute)
		}
	}
}

func TestOutOfRangeBitsClampFirst(t *testing.T) {
	if !AccessLevel(99).CanRead() || !AccessLevel(99).CanExecute() {
		t.Error("out-of-range level should behave as Full Access")
	}
	if AccessLevel(-3).CanRead() {
		t.Error("negative level should behave as No Access")
	}
	if AccessLevel(-3).Name() != "No Access" || AccessLevel(99).Name() != "Full Access" {
		t.Error("out-of-range names should clamp")
	}
}
