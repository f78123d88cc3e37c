package excel

// RawTable is a response file as read: a header row and string cells
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// ColumnKind is the inferred type of a column
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindText        ColumnKind = "text"
	KindEmpty       ColumnKind = "empty"
)

// ColumnProfile describes one column of a raw table
type ColumnProfile struct {
	Header   string     `json:"header"`
	Kind     ColumnKind `json:"kind"`
	Distinct int        `json:"distinct"`
	Missing  int        `json:"missing"`
}
