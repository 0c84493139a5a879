package frame

// MergePolicy decides whether freshly computed data may be appended to a
// persisted table.
type MergePolicy string

const (
	// PolicyStrict requires the new data to start strictly inside the old
	// range: old.first < new.first < old.last.
	PolicyStrict MergePolicy = "strict"

	// PolicyForwardExtend only requires new.first > old.first, so updates that
	// start at or after old.last are accepted as well.
	PolicyForwardExtend MergePolicy = "forward-extend"
)

// ParseMergePolicy maps a config string to a policy; unknown values are strict
func ParseMergePolicy(s string) MergePolicy {
	if MergePolicy(s) == PolicyForwardExtend {
		return PolicyForwardExtend
	}
	return PolicyStrict
}

// CanAppend evaluates the merge precondition for old ++ fresh
func CanAppend(old, fresh *Table, policy MergePolicy) bool {
	if old.Empty() || fresh.Empty() {
		return false
	}

	if !fresh.First().After(old.First()) {
		return false
	}

	if policy == PolicyForwardExtend {
		return true
	}

	return fresh.First().Before(old.Last())
}

// AppendAfter returns old followed by the rows of fresh strictly after old's last
// timestamp, with duplicate timestamps dropped (first occurrence wins).
func AppendAfter(old, fresh *Table) *Table {
	tail := fresh.After(old.Last())
	return Concat(old, tail).DropDuplicateIndex()
}
