package typeinfo

import (
	"fmt"
	"sort"
	"strings"

	"hdlfront/internal/ast"
	"hdlfront/internal/parametric"
)

// InvocationCalleeData is the instantiation chosen for one caller env.
type InvocationCalleeData struct {
	CallerEnv parametric.Env
	CalleeEnv parametric.Env
	Derived   *TypeInfo // nil when the callee is not parametric
}

// InvocationData records the instantiations of one invocation or spawn node.
// Caller is the enclosing function, nil at module top level.
type InvocationData struct {
	Node   *ast.Node
	Caller *ast.Node
	byEnv  map[string]*InvocationCalleeData
}

// Lookup returns the callee data recorded for callerEnv.
func (d *InvocationData) Lookup(callerEnv parametric.Env) (*InvocationCalleeData, bool) {
	c, ok := d.byEnv[callerEnv.Key()]
	return c, ok
}

// Entries returns the recorded callee data ordered by caller env.
func (d *InvocationData) Entries() []*InvocationCalleeData {
	out := make([]*InvocationCalleeData, 0, len(d.byEnv))
	for _, c := range d.byEnv {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CallerEnv.Compare(out[j].CallerEnv) < 0 })
	return out
}

func (d *InvocationData) String() string {
	caller := "<none>"
	if d.Caller != nil {
		caller = d.Caller.Owner.Identifier(d.Caller.ID)
	}
	parts := make([]string, 0, len(d.byEnv))
	for _, c := range d.Entries() {
		derived := "<none>"
		if c.Derived != nil {
			derived = fmt.Sprintf("ti#%d", c.Derived.ID())
		}
		parts = append(parts, fmt.Sprintf("%s: {callee: %s, derived: %s}", c.CallerEnv, c.CalleeEnv, derived))
	}
	return fmt.Sprintf("InvocationData{node: %s @ %s, caller: %s, env_to_callee_data: {%s}}",
		d.Node, d.Node.Span, caller, strings.Join(parts, ", "))
}

// AddInvocationTypeInfo upserts the instantiation of invocation under
// callerEnv. The binding lives with the tree's module facts. Recording the
// same invocation from a different caller function fails with
// ReferentialIntegrity.
func (ti *TypeInfo) AddInvocationTypeInfo(invocation, caller *ast.Node, callerEnv, calleeEnv parametric.Env, derived *TypeInfo) error {
	id := ti.key(invocation)
	if caller != nil {
		ti.key(caller)
	}
	if derived != nil && derived.owner != ti.owner {
		panic("typeinfo: derived type info belongs to a different owner")
	}
	data, ok := ti.facts.invocations[id]
	if !ok {
		data = &InvocationData{Node: invocation, Caller: caller, byEnv: make(map[string]*InvocationCalleeData)}
		ti.facts.invocations[id] = data
	} else if callerID(data.Caller) != callerID(caller) {
		return &Error{
			Kind:   ReferentialIntegrity,
			Module: ti.module.Name,
			Node:   invocation,
			Msg: fmt.Sprintf("invocation already recorded with caller %s, got %s",
				describeCaller(data.Caller), describeCaller(caller)),
		}
	}
	data.byEnv[callerEnv.Key()] = &InvocationCalleeData{
		CallerEnv: callerEnv,
		CalleeEnv: calleeEnv,
		Derived:   derived,
	}
	return nil
}

func callerID(n *ast.Node) ast.NodeID {
	if n == nil {
		return ast.NoNodeID
	}
	return n.ID
}

func describeCaller(n *ast.Node) string {
	if n == nil {
		return "<top level>"
	}
	return n.Owner.Identifier(n.ID)
}

// GetInvocationTypeInfo returns the derived TypeInfo for (invocation,
// callerEnv), if one was recorded.
func (ti *TypeInfo) GetInvocationTypeInfo(invocation *ast.Node, callerEnv parametric.Env) (*TypeInfo, bool) {
	c, ok := ti.lookupInvocation(invocation, callerEnv)
	if !ok || c.Derived == nil {
		return nil, false
	}
	return c.Derived, true
}

func (ti *TypeInfo) GetInvocationTypeInfoOrError(invocation *ast.Node, callerEnv parametric.Env) (*TypeInfo, error) {
	if d, ok := ti.GetInvocationTypeInfo(invocation, callerEnv); ok {
		return d, nil
	}
	return nil, notFound(invocation, "no derived type info for caller env %s", callerEnv)
}

// GetInvocationCalleeBindings returns the callee env chosen for (invocation,
// callerEnv).
func (ti *TypeInfo) GetInvocationCalleeBindings(invocation *ast.Node, callerEnv parametric.Env) (parametric.Env, bool) {
	c, ok := ti.lookupInvocation(invocation, callerEnv)
	if !ok {
		return parametric.Env{}, false
	}
	return c.CalleeEnv, true
}

func (ti *TypeInfo) lookupInvocation(invocation *ast.Node, callerEnv parametric.Env) (*InvocationCalleeData, bool) {
	data, ok := ti.facts.invocations[ti.key(invocation)]
	if !ok {
		return nil, false
	}
	return data.Lookup(callerEnv)
}

// GetRootInvocations returns every invocation recorded in this tree, ordered
// by node id.
func (ti *TypeInfo) GetRootInvocations() []*InvocationData {
	out := make([]*InvocationData, 0, len(ti.facts.invocations))
	for _, d := range ti.facts.invocations {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node.ID < out[j].Node.ID })
	return out
}
