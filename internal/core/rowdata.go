package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RowData preserves the cells of an ingested row in their original column
// order. encoding/json maps lose ordering, so the type carries its own
// marshaling that writes and reads keys in sequence.
type RowData struct {
	fields []Field
}

// Field is one named cell value.
type Field struct {
	Name  string
	Value string
}

// NewRowData builds row data from header/value pairs in column order.
func NewRowData(fields ...Field) RowData {
	return RowData{fields: fields}
}

// Set appends the column on first use and overwrites its value afterwards.
func (d *RowData) Set(name, value string) {
	for i := range d.fields {
		if d.fields[i].Name == name {
			d.fields[i].Value = value
			return
		}
	}
	d.fields = append(d.fields, Field{Name: name, Value: value})
}

// Get returns the value for a column and whether the column exists.
func (d RowData) Get(name string) (string, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names returns the column names in their original order.
func (d RowData) Names() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns the cells in column order.
func (d RowData) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Len returns the number of columns.
func (d RowData) Len() int {
	return len(d.fields)
}

// Equal reports whether both rows have the same columns, in the same
// order, with the same values.
func (d RowData) Equal(other RowData) bool {
	if len(d.fields) != len(other.fields) {
		return false
	}
	for i, f := range d.fields {
		if other.fields[i] != f {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (d RowData) Clone() RowData {
	return RowData{fields: d.Fields()}
}

// MarshalJSON writes the cells as a JSON object with keys in column order.
func (d RowData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the key order of the document.
func (d *RowData) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read row data: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("read row data: expected object, got %v", tok)
	}
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read row data key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("read row data key: got %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read row data value for %q: %w", key, err)
		}
		val, ok := valTok.(string)
		if !ok {
			return fmt.Errorf("read row data value for %q: expected string, got %v", key, valTok)
		}
		fields = append(fields, Field{Name: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read row data: %w", err)
	}
	d.fields = fields
	return nil
}
