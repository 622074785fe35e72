package dao

import (
	"github.com/CosmWasm/tinyjson/jwriter"
)

// Record is one emitted event plus the call that produced it.
type Record struct {
	Seq   uint64
	Tx    string
	At    int64
	Event Event
}

// Kind forwards to the wrapped event.
func (r Record) Kind() string { return r.Event.Kind() }

// LogLine forwards to the wrapped event.
func (r Record) LogLine() string {
	return r.Event.LogLine()
}

// MarshalTinyJSON writes {"seq":..,"tx":..,"at":..,"kind":..,"data":{..}}.
func (r Record) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"seq":`)
	w.Uint64(r.Seq)
	w.RawString(`,"tx":`)
	w.String(r.Tx)
	w.RawString(`,"at":`)
	w.Int64(r.At)
	w.RawString(`,"kind":`)
	w.String(r.Event.Kind())
	w.RawString(`,"data":`)
	r.Event.MarshalTinyJSON(w)
	w.RawByte('}')
}

// Encode renders the record as JSON.
func Encode(r Record) ([]byte, error) {
	w := jwriter.Writer{}
	r.MarshalTinyJSON(&w)
	return w.BuildBytes()
}
