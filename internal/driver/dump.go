package driver

import (
	"encoding/json"
	"io"

	"hdlfront/internal/typeinfo"
)

// WriteSnapshot encodes the type information of res as msgpack.
func WriteSnapshot(w io.Writer, res *Result) error {
	return typeinfo.WriteSnapshot(w, res.Owner.Snapshot())
}

// WriteSnapshotJSON writes the same snapshot as indented JSON.
func WriteSnapshotJSON(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Owner.Snapshot())
}
