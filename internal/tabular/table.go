package tabular

// RawRecord is one input row: an ordered mapping of original header text to
// the cell value as a string.
type RawRecord struct {
	keys   []string
	values map[string]string
}

// NewRawRecord creates an empty record with room for n columns.
func NewRawRecord(n int) RawRecord {
	return RawRecord{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// Set stores a value. A repeated key keeps its first position and the last value.
func (r *RawRecord) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for key, or "" if the key is absent.
func (r RawRecord) Get(key string) string {
	return r.values[key]
}

// Lookup returns the value for key and whether the key exists.
func (r RawRecord) Lookup(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the headers in their original order.
func (r RawRecord) Keys() []string {
	return r.keys
}

// Len returns the number of columns in the record.
func (r RawRecord) Len() int {
	return len(r.keys)
}

// Table is the decoded content of one file.
type Table struct {
	// Headers holds the header row (CSV, XLSX) or the keys seen across all
	// objects (JSON), in order.
	Headers []string
	Records []RawRecord
}

// Sheet is a flat, already formatted table ready to be written to a file.
type Sheet struct {
	Key     string // machine name, used for JSON bundles and file suffixes
	Name    string // display name, used as workbook sheet title
	Headers []string
	Rows    [][]string
}
