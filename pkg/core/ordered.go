package core

import (
	"bytes"

	json "github.com/bytedance/sonic"
)

// MarshalOrdered encodes parallel keys and values as one JSON object,
// keeping the key order. Plain Go maps lose it.
func MarshalOrdered(keys []string, values []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(values[i])
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

// MarshalJSON encodes the set as an object keyed by test name, in insertion order.
func (s *ResultSet) MarshalJSON() ([]byte, error) {
	all := s.All()
	keys := make([]string, len(all))
	values := make([]interface{}, len(all))
	for i, r := range all {
		keys[i] = r.Name
		values[i] = r
	}
	return MarshalOrdered(keys, values)
}
