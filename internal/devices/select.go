package devices

// Selector values with special meaning. Kept in sync with the config package;
// anything else is compared against device ids exactly.
const (
	SelectAll  = "all"
	SelectNone = "none"
)

// Selected reports whether a device should be left unmuted given the
// configured selector for its direction. "all" selects every device, "none"
// selects no device, and any other value selects by exact id match.
func Selected(selector string, dev Device) bool {
	switch selector {
	case SelectAll:
		return true
	case SelectNone, "":
		return false
	default:
		return selector == dev.ID
	}
}
