package model

// Dataset formats the backend detects on upload.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatTXT  = "txt"
)

// Dataset represents an uploaded tabular file and its derived metadata
type Dataset struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	Format      string            `json:"format"`
	UploadTime  Timestamp         `json:"upload_time"`
	Rows        int               `json:"rows"`
	Columns     int               `json:"columns"`
	ColumnNames []string          `json:"column_names"`
	DataTypes   map[string]string `json:"data_types"`
	Description string            `json:"description,omitempty"`
}

// NumericColumns returns the int64/float64 columns in column order. These are
// the only valid prediction targets.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, col := range d.ColumnNames {
		switch d.DataTypes[col] {
		case "int64", "float64":
			out = append(out, col)
		}
	}
	return out
}

// HasColumn reports whether name is one of the dataset's columns.
func (d *Dataset) HasColumn(name string) bool {
	for _, col := range d.ColumnNames {
		if col == name {
			return true
		}
	}
	return false
}

// DatasetPreview is the first rows of a dataset as returned by the preview endpoint
type DatasetPreview struct {
	DatasetID string   `json:"dataset_id"`
	Rows      int      `json:"rows"`
	Columns   []string `json:"columns"`
	Data      []Value  `json:"data"`
}

// Cell returns the display text of one preview cell.
func (p *DatasetPreview) Cell(row int, column string) string {
	if row < 0 || row >= len(p.Data) {
		return ""
	}
	v := p.Data[row].Field(column)
	if s, ok := v.AsString(); ok {
		return s
	}
	if v.IsNull() {
		return ""
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(raw)
}
