package core

import (
	"encoding/json"
	"testing"
)

func TestRowDataOrderSurvivesJSON(t *testing.T) {
	data := NewRowData(
		Field{"Zulu", "1"},
		Field{"alpha", "2"},
		Field{"Mike", "3"},
	)
	b, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Zulu":"1","alpha":"2","Mike":"3"}`
	if string(b) != want {
		t.Fatalf("expected %s, got %s", want, b)
	}

	var back RowData
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(data) {
		t.Fatalf("round trip changed data: %v", back.Fields())
	}
	names := back.Names()
	if names[0] != "Zulu" || names[1] != "alpha" || names[2] != "Mike" {
		t.Fatalf("column order lost: %v", names)
	}
}

func TestRowDataSetAndGet(t *testing.T) {
	var data RowData
	data.Set("a", "1")
	data.Set("b", "2")
	data.Set("a", "3") // overwrite keeps position
	if data.Len() != 2 {
		t.Fatalf("expected 2 columns, got %d", data.Len())
	}
	v, ok := data.Get("a")
	if !ok || v != "3" {
		t.Fatalf("expected a=3, got %q ok=%v", v, ok)
	}
	if _, ok := data.Get("missing"); ok {
		t.Fatalf("expected missing column")
	}
}

func TestRowDataEqual(t *testing.T) {
	a := NewRowData(Field{"x", "1"}, Field{"y", "2"})
	b := NewRowData(Field{"x", "1"}, Field{"y", "2"})
	c := NewRowData(Field{"y", "2"}, Field{"x", "1"}) // same cells, different order
	d := NewRowData(Field{"x", "1"})
	if !a.Equal(b) {
		t.Fatalf("expected equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected order to matter")
	}
	if a.Equal(d) {
		t.Fatalf("expected length to matter")
	}
}

func TestRowDataUnmarshalRejectsNonString(t *testing.T) {
	var data RowData
	if err := json.Unmarshal([]byte(`{"a":1}`), &data); err == nil {
		t.Fatalf("expected error for numeric value")
	}
	if err := json.Unmarshal([]byte(`[1,2]`), &data); err == nil {
		t.Fatalf("expected error for array")
	}
}

func TestRowDataCloneIsIndependent(t *testing.T) {
	a := NewRowData(Field{"x", "1"})
	b := a.Clone()
	b.Set("x", "9")
	if v, _ := a.Get("x"); v != "1" {
		t.Fatalf("clone mutated original, got %q", v)
	}
}
