package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMarshalOrdered(t *testing.T) {
	data, err := MarshalOrdered([]string{"z", "a", "m"}, []interface{}{1, "two", true})
	if err != nil {
		t.Fatalf("MarshalOrdered: %v", err)
	}
	if got := string(data); got != `{"z":1,"a":"two","m":true}` {
		t.Errorf("got %s", got)
	}
}

func TestMarshalOrdered_Empty(t *testing.T) {
	data, err := MarshalOrdered(nil, nil)
	if err != nil {
		t.Fatalf("MarshalOrdered: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("got %s, want {}", data)
	}
}

func TestResultSet_MarshalJSON(t *testing.T) {
	s := NewResultSet()
	s.Put(TestResult{Name: "Zeta", Status: StatusPassed, Duration: 5})
	s.Put(TestResult{Name: "Alpha", Status: StatusFailed, Error: "boom"})

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	raw := string(data)
	if strings.Index(raw, `"Zeta"`) > strings.Index(raw, `"Alpha"`) {
		t.Errorf("keys out of insertion order: %s", raw)
	}

	var decoded map[string]TestResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["Alpha"].Error != "boom" || decoded["Alpha"].Status != StatusFailed {
		t.Errorf("Alpha = %+v", decoded["Alpha"])
	}
	if decoded["Zeta"].Duration != 5 {
		t.Errorf("Zeta.Duration = %d, want 5", decoded["Zeta"].Duration)
	}
}
