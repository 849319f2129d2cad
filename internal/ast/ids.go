package ast

// NodeID identifies a node inside its Module. Node identity across modules is
// the (module, NodeID) pair.
type NodeID uint32

const NoNodeID NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNodeID }
