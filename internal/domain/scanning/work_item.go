package scanning

// WorkItem is one discovered file waiting to be scanned. Size is measured at
// discovery time and is not re-checked when the file is claimed.
type WorkItem struct {
	Path string
	Size int64
}

// NewWorkItem creates a WorkItem for the file at path.
func NewWorkItem(path string, size int64) WorkItem {
	return WorkItem{Path: path, Size: size}
}
