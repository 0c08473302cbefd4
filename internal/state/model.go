package state

// Origin records how a shape entered the session.
type Origin int

const (
	OriginExisting Origin = iota
	OriginNew
)

func (o Origin) String() string {
	if o == OriginNew {
		return "new"
	}
	return "existing"
}

// Document is the immutable fetched snapshot of one host document.
// Identity is file path plus name; Opened distinguishes documents live
// in the host from dormant files on disk.
type Document struct {
	Path      string
	Name      string
	Opened    bool
	Thumbnail string // data-URI, opaque to the core
	Layers    []Layer
}

// Key identifies the document within the session.
func (d Document) Key() string {
	return d.Path + "|" + d.Name
}

// Layer is one text layer inside a document. Snapshot holds the
// last-fetched raw fragment and is only ever replaced wholesale, never
// mutated in place.
type Layer struct {
	ID        string
	Name      string
	Snapshot  string
	EntryPath string // archive entry for dormant documents, empty when live
	RawOnly   bool   // fragment failed to parse; degraded raw display
	Shapes    []Shape
}

// Shape is the parsed editable view of one text element at fetch time.
type Shape struct {
	ID     string
	Text   string // canonical text
	Origin Origin
}

// ShapeEditState is a read-only view of one shape's edit entry.
type ShapeEditState struct {
	ID      string
	Text    string
	Dirty   bool
	Deleted bool
	Origin  Origin
}
