package models

import (
	"bytes"
	"encoding/json"
)

// RouteEntry is one labelled location in a RouteResult
type RouteEntry struct {
	Label string         `json:"label"`
	Stops []StopDistance `json:"stops"`
}

// RouteResult maps a location label to its nearest stops, keeping the order in
// which labels were first added. Setting an existing label replaces its stops
// in place.
type RouteResult struct {
	entries []RouteEntry
	index   map[string]int
}

// NewRouteResult creates an empty result
func NewRouteResult() *RouteResult {
	return &RouteResult{index: make(map[string]int)}
}

// Set records stops under label
func (r *RouteResult) Set(label string, stops []StopDistance) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[label]; ok {
		r.entries[i].Stops = stops
		return
	}
	r.index[label] = len(r.entries)
	r.entries = append(r.entries, RouteEntry{Label: label, Stops: stops})
}

// Get returns the stops recorded for label
func (r *RouteResult) Get(label string) ([]StopDistance, bool) {
	i, ok := r.index[label]
	if !ok {
		return nil, false
	}
	return r.entries[i].Stops, true
}

// Labels returns the labels in insertion order
func (r *RouteResult) Labels() []string {
	labels := make([]string, len(r.entries))
	for i, e := range r.entries {
		labels[i] = e.Label
	}
	return labels
}

// Entries returns a copy of the entries in insertion order
func (r *RouteResult) Entries() []RouteEntry {
	out := make([]RouteEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of labels
func (r *RouteResult) Len() int {
	return len(r.entries)
}

// MarshalJSON encodes the result as a JSON object whose keys keep insertion order
func (r *RouteResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		stops := e.Stops
		if stops == nil {
			stops = []StopDistance{}
		}
		val, err := json.Marshal(stops)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
