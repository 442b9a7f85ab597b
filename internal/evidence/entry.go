package evidence

import (
	"encoding/json"
)

// Entry is a stored value returned by a scan. It is either a decoded Record
// or, when the bytes are not a valid record, the raw value.
type Entry struct {
	Key    string
	Record *Record
	Raw    []byte
}

// Decode turns a stored value into an Entry without failing. A value without
// an evidence id, such as a JSON null, is kept raw.
func Decode(key string, value []byte) Entry {
	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil || rec.EvidenceID == "" {
		return Entry{Key: key, Raw: value}
	}
	return Entry{Key: key, Record: &rec}
}

// Decoded reports whether the entry holds a record.
func (e Entry) Decoded() bool { return e.Record != nil }

// MarshalJSON writes the record, or the raw bytes as a JSON string.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Record != nil {
		return json.Marshal(e.Record)
	}
	return json.Marshal(string(e.Raw))
}

// HistoryEntry is one historical version of an evidence key.
type HistoryEntry struct {
	TxID      string `json:"txId"`
	Timestamp int64  `json:"timestamp"`
	IsDelete  bool   `json:"isDelete"`
	Value     *Entry `json:"value,omitempty"`
}
