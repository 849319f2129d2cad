package typeinfo

import (
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotSchema is bumped whenever the Snapshot layout changes.
const snapshotSchema uint16 = 1

// Snapshot is a flattened, serializable view of an Owner for consumers that
// run in another process. Types and values are rendered as text.
type Snapshot struct {
	Schema uint16
	Nodes  []NodeSnapshot
}

type NodeSnapshot struct {
	ID     int
	Module string
	Parent int // -1 for roots

	Types      []TypeFact
	ConstExprs []ConstFact

	// Root only.
	Imports       []ImportFact
	Invocations   []InvocationFact
	Slices        []SliceFact
	ImplicitToken []TokenFact
	Entries       []EntryFact
}

type TypeFact struct {
	Node uint32
	Kind string
	Type string
}

type ConstFact struct {
	Node  uint32
	Known bool
	Value string
}

type ImportFact struct {
	Node   uint32
	Module string
	Root   int
}

type InvocationFact struct {
	Node      uint32
	Caller    uint32
	CallerEnv string
	CalleeEnv string
	Derived   int // -1 when not parametric
}

type SliceFact struct {
	Node  uint32
	Env   string
	Start int64
	Width int64
}

type TokenFact struct {
	Function uint32
	Required bool
}

type EntryFact struct {
	Proc     uint32
	TypeInfo int
}

// Snapshot flattens every node of o.
func (o *Owner) Snapshot() *Snapshot {
	snap := &Snapshot{Schema: snapshotSchema, Nodes: make([]NodeSnapshot, 0, len(o.nodes))}
	for _, ti := range o.nodes {
		snap.Nodes = append(snap.Nodes, ti.snapshot())
	}
	return snap
}

func (ti *TypeInfo) snapshot() NodeSnapshot {
	ns := NodeSnapshot{ID: ti.id, Module: ti.module.Name, Parent: -1}
	if ti.parent != nil {
		ns.Parent = ti.parent.id
	}
	for _, id := range sortedIDs(ti.scope.types) {
		ty := ti.scope.types[id]
		ns.Types = append(ns.Types, TypeFact{Node: uint32(id), Kind: ti.module.MustNode(id).Kind.String(), Type: ty.String()})
	}
	for _, id := range sortedIDs(ti.scope.constExprs) {
		ce := ti.scope.constExprs[id]
		f := ConstFact{Node: uint32(id), Known: ce.known}
		if ce.known {
			f.Value = ce.value.String()
		}
		ns.ConstExprs = append(ns.ConstExprs, f)
	}
	if !ti.IsRoot() {
		return ns
	}
	mf := ti.facts
	for _, id := range sortedIDs(mf.imports) {
		info := mf.imports[id]
		ns.Imports = append(ns.Imports, ImportFact{Node: uint32(id), Module: info.Module.Name, Root: info.TypeInfo.id})
	}
	for _, d := range ti.GetRootInvocations() {
		for _, c := range d.Entries() {
			f := InvocationFact{
				Node:      uint32(d.Node.ID),
				Caller:    uint32(callerID(d.Caller)),
				CallerEnv: c.CallerEnv.String(),
				CalleeEnv: c.CalleeEnv.String(),
				Derived:   -1,
			}
			if c.Derived != nil {
				f.Derived = c.Derived.id
			}
			ns.Invocations = append(ns.Invocations, f)
		}
	}
	for _, id := range sortedIDs(mf.slices) {
		for _, e := range sortedSliceEntries(mf.slices[id]) {
			ns.Slices = append(ns.Slices, SliceFact{Node: uint32(id), Env: e.env.String(), Start: e.sw.Start, Width: e.sw.Width})
		}
	}
	for _, id := range sortedIDs(mf.implicitToken) {
		ns.ImplicitToken = append(ns.ImplicitToken, TokenFact{Function: uint32(id), Required: mf.implicitToken[id]})
	}
	for _, id := range sortedIDs(mf.entry) {
		ns.Entries = append(ns.Entries, EntryFact{Proc: uint32(id), TypeInfo: mf.entry[id].id})
	}
	return ns
}

func sortedSliceEntries(m map[string]sliceEntry) []sliceEntry {
	out := make([]sliceEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].env.Compare(out[j].env) < 0 })
	return out
}

// WriteSnapshot encodes snap as msgpack.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode type info snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a msgpack snapshot and checks its schema.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode type info snapshot: %w", err)
	}
	if snap.Schema != snapshotSchema {
		return nil, fmt.Errorf("type info snapshot schema %d, want %d", snap.Schema, snapshotSchema)
	}
	return &snap, nil
}
