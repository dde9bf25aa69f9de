package integrations

// Permission bits composing an AccessLevel
const (
	PermRead    = 1
	PermWrite   = 2
	PermExecute = 4
)

// AccessLevel is a 3-bit permission mask (read=1, write=2, execute=4)
type AccessLevel int

const (
	AccessNone         AccessLevel = 0
	AccessReadOnly     AccessLevel = 1
	AccessWriteOnly    AccessLevel = 2
	AccessReadWrite    AccessLevel = 3
	AccessExecuteOnly  AccessLevel = 4
	AccessReadExecute  AccessLevel = 5
	AccessWriteExecute AccessLevel = 6
	AccessFull         AccessLevel = 7
)

// levelNames is the externally stable integer-to-name mapping. Order is the
// wire contract; never reorder.
var levelNames = [8]string{
	"No Access",
	"Read Only",
	"Write Only",
	"Read/Write",
	"Execute Only",
	"Read/Execute",
	"Write/Execute",
	"Full Access",
}

// Clamp maps any integer onto a valid level: negatives to AccessNone,
// anything above the mask to AccessFull. Clamping never grants more than
// Full Access.
func Clamp(level int) AccessLevel {
	if level < 0 {
		return AccessNone
	}
	if level > int(AccessFull) {
		return AccessFull
	}
	return AccessLevel(level)
}

// Valid reports whether the level is within the 3-bit table
func Valid(level int) bool {
	return level >= 0 && level <= int(AccessFull)
}

// Name returns the display name for the level, clamping first so the
// lookup can never go out of bounds.
func (l AccessLevel) Name() string {
	return levelNames[Clamp(int(l))]
}

func (l AccessLevel) String() string {
	return l.Name()
}

// CanRead reports whether the read bit is set
func (l AccessLevel) CanRead() bool {
	return Clamp(int(l))&PermRead != 0
}

// CanWrite reports whether the write bit is set
func (l AccessLevel) CanWrite() bool {
	return Clamp(int(l))&PermWrite != 0
}

// CanExecute reports whether the execute bit is set
func (l AccessLevel) CanExecute() bool {
	return Clamp(int(l))&PermExecute != 0
}
