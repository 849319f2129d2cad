package dag

import (
	"slices"
	"strings"
	"testing"

	"hdlfront/internal/diag"
	"hdlfront/internal/project"
	"hdlfront/internal/source"
)

func idsToNames(idx ModuleIndex, ids []ModuleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}

func batchesToNames(idx ModuleIndex, batches [][]ModuleID) [][]string {
	out := make([][]string, len(batches))
	for i, batch := range batches {
		out[i] = idsToNames(idx, batch)
	}
	return out
}

func TestBuildIndexIncludesImports(t *testing.T) {
	metas := []project.ModuleMeta{
		{
			Name: "core/main",
			Imports: []project.ImportMeta{
				{Name: "lib/math"},
				{Name: "lib/util"},
			},
		},
		{Name: "lib/util"},
	}

	idx := BuildIndex(metas)

	if len(idx.IDToName) != 3 {
		t.Fatalf("unexpected module count: %d", len(idx.IDToName))
	}

	wantNames := []string{"core/main", "lib/math", "lib/util"}
	for i, want := range wantNames {
		if got := idx.IDToName[i]; got != want {
			t.Fatalf("idx.IDToName[%d] = %q, want %q", i, got, want)
		}
		if id, ok := idx.NameToID[want]; !ok || int(id) != i {
			t.Fatalf("idx.NameToID[%q] = %v, want %d", want, id, i)
		}
	}
}

func TestBuildGraphReportsMissingModules(t *testing.T) {
	appSpan := source.Span{File: 1, Start: 0, End: 10}
	coreSpan := source.Span{File: 2, Start: 0, End: 8}
	utilImportSpan := source.Span{File: 1, Start: 5, End: 8}

	appMeta := project.ModuleMeta{
		Name: "app",
		Span: appSpan,
		Imports: []project.ImportMeta{
			{Name: "core", Span: source.Span{File: 1, Start: 1, End: 4}},
			{Name: "util", Span: utilImportSpan},
		},
	}
	coreMeta := project.ModuleMeta{
		Name: "core",
		Span: coreSpan,
		Imports: []project.ImportMeta{
			{Name: "util", Span: source.Span{File: 2, Start: 2, End: 5}},
		},
	}

	bagApp := diag.NewBag(10)
	bagCore := diag.NewBag(10)

	nodes := []ModuleNode{
		{Meta: appMeta, Reporter: &diag.BagReporter{Bag: bagApp}},
		{Meta: coreMeta, Reporter: &diag.BagReporter{Bag: bagCore}},
	}
	idx := BuildIndex([]project.ModuleMeta{appMeta, coreMeta})
	graph, _ := BuildGraph(idx, nodes)

	appID := idx.NameToID["app"]
	coreID := idx.NameToID["core"]
	utilID := idx.NameToID["util"]

	appDeps := graph.Edges[int(appID)]
	if len(appDeps) != 2 || appDeps[0] != coreID || appDeps[1] != utilID {
		t.Fatalf("app deps = %v, want [%v %v]", appDeps, coreID, utilID)
	}

	coreDeps := graph.Edges[int(coreID)]
	if len(coreDeps) != 1 || coreDeps[0] != utilID {
		t.Fatalf("core deps = %v, want [%v]", coreDeps, utilID)
	}

	if !graph.Present[int(appID)] || !graph.Present[int(coreID)] || graph.Present[int(utilID)] {
		t.Fatalf("unexpected Present flags: %v", graph.Present)
	}

	if bagApp.Len() != 1 {
		t.Fatalf("app diagnostics = %d, want 1", bagApp.Len())
	}
	if bagApp.Items()[0].Code != diag.ProjMissingModule {
		t.Fatalf("app diag code = %v, want %v", bagApp.Items()[0].Code, diag.ProjMissingModule)
	}

	if bagCore.Len() != 1 {
		t.Fatalf("core diagnostics = %d, want 1", bagCore.Len())
	}
	if bagCore.Items()[0].Code != diag.ProjMissingModule {
		t.Fatalf("core diag code = %v, want %v", bagCore.Items()[0].Code, diag.ProjMissingModule)
	}
}

func TestBuildGraphDuplicateModules(t *testing.T) {
	spanA := source.Span{File: 1, Start: 0, End: 5}
	spanB := source.Span{File: 2, Start: 0, End: 5}

	metaA := project.ModuleMeta{Name: "dup/mod", Span: spanA}
	metaB := project.ModuleMeta{Name: "dup/mod", Span: spanB}

	bagA := diag.NewBag(10)
	bagB := diag.NewBag(10)

	nodes := []ModuleNode{
		{Meta: metaA, Reporter: &diag.BagReporter{Bag: bagA}},
		{Meta: metaB, Reporter: &diag.BagReporter{Bag: bagB}},
	}

	idx := BuildIndex([]project.ModuleMeta{metaA, metaB})
	graph, slots := BuildGraph(idx, nodes)

	if !graph.Present[idx.NameToID["dup/mod"]] {
		t.Fatalf("expected module to be present")
	}

	if bagA.Len() != 0 {
		t.Fatalf("unexpected diagnostics for first module: %v", bagA.Items())
	}
	if bagB.Len() != 1 {
		t.Fatalf("expected one diagnostic for duplicate, got %d", bagB.Len())
	}
	if bagB.Items()[0].Code != diag.ProjDuplicateModule {
		t.Fatalf("duplicate code = %v, want %v", bagB.Items()[0].Code, diag.ProjDuplicateModule)
	}

	// ensure slots keep original metadata
	slot := slots[int(idx.NameToID["dup/mod"])]
	if !slot.Present || slot.Meta.Span != spanA {
		t.Fatalf("expected slot to hold first module metadata")
	}
}

func TestToposortKahnBatches(t *testing.T) {
	metas := []project.ModuleMeta{
		{Name: "b", Imports: []project.ImportMeta{{Name: "c"}}},
		{Name: "a"},
		{Name: "c"},
	}

	nodes := []ModuleNode{
		{Meta: metas[0]},
		{Meta: metas[1]},
		{Meta: metas[2]},
	}

	idx := BuildIndex(metas)
	graph, _ := BuildGraph(idx, nodes)

	topo := ToposortKahn(graph)
	if topo.Cyclic {
		t.Fatalf("expected acyclic graph")
	}

	orderNames := idsToNames(idx, topo.Order)
	if len(orderNames) != 3 {
		t.Fatalf("order len = %d, want 3", len(orderNames))
	}
	wantOrder := []string{"a", "b", "c"}
	for i, want := range wantOrder {
		if orderNames[i] != want {
			t.Fatalf("order[%d] = %q, want %q", i, orderNames[i], want)
		}
	}

	batches := batchesToNames(idx, topo.Batches)
	wantBatches := [][]string{{"a", "b"}, {"c"}}
	if len(batches) != len(wantBatches) {
		t.Fatalf("batches len = %d, want %d", len(batches), len(wantBatches))
	}
	for i := range wantBatches {
		if len(batches[i]) != len(wantBatches[i]) {
			t.Fatalf("batch[%d] len = %d, want %d", i, len(batches[i]), len(wantBatches[i]))
		}
		for j, want := range wantBatches[i] {
			if batches[i][j] != want {
				t.Fatalf("batch[%d][%d] = %q, want %q", i, j, batches[i][j], want)
			}
		}
	}
}

func TestReportCycles(t *testing.T) {
	spanA := source.Span{File: 1, Start: 0, End: 4}
	spanB := source.Span{File: 2, Start: 0, End: 4}

	metaA := project.ModuleMeta{
		Name: "a",
		Span: spanA,
		Imports: []project.ImportMeta{
			{Name: "b", Span: spanA},
		},
	}
	metaB := project.ModuleMeta{
		Name: "b",
		Span: spanB,
		Imports: []project.ImportMeta{
			{Name: "a", Span: spanB},
		},
	}

	bagA := diag.NewBag(10)
	bagB := diag.NewBag(10)

	nodes := []ModuleNode{
		{Meta: metaA, Reporter: &diag.BagReporter{Bag: bagA}},
		{Meta: metaB, Reporter: &diag.BagReporter{Bag: bagB}},
	}

	idx := BuildIndex([]project.ModuleMeta{metaA, metaB})
	graph, slots := BuildGraph(idx, nodes)

	topo := ToposortKahn(graph)
	if !topo.Cyclic || len(topo.Cycles) != 2 {
		t.Fatalf("expected cycle with two modules, got %+v", topo)
	}

	ReportCycles(idx, slots, topo)

	if got := strings.Join(idsToNames(idx, topo.Path), " -> "); got != "a -> b -> a" && got != "b -> a -> b" {
		t.Fatalf("cycle path = %q", got)
	}
	if bagA.Len() != 1 || bagA.Items()[0].Code != diag.ProjImportCycle {
		t.Fatalf("module a diagnostics = %v", bagA.Items())
	}
	if bagB.Len() != 1 || bagB.Items()[0].Code != diag.ProjImportCycle {
		t.Fatalf("module b diagnostics = %v", bagB.Items())
	}
}

func TestCheckOrderPutsImportsFirst(t *testing.T) {
	metas := []project.ModuleMeta{
		{Name: "top", Imports: []project.ImportMeta{{Name: "mid"}, {Name: "leaf"}}},
		{Name: "mid", Imports: []project.ImportMeta{{Name: "leaf"}}},
		{Name: "leaf"},
	}
	nodes := make([]ModuleNode, 0, len(metas))
	for _, m := range metas {
		nodes = append(nodes, ModuleNode{Meta: m})
	}
	idx := BuildIndex(metas)
	graph, _ := BuildGraph(idx, nodes)

	got := idsToNames(idx, ToposortKahn(graph).CheckOrder())
	want := []string{"leaf", "mid", "top"}
	if !slices.Equal(got, want) {
		t.Fatalf("check order = %v, want %v", got, want)
	}
}

func TestCyclePathSkipsModulesBehindTheCycle(t *testing.T) {
	// base is stuck behind x -> y -> z -> x without being on it, and sorts
	// first among the leftovers.
	metas := []project.ModuleMeta{
		{Name: "entry", Imports: []project.ImportMeta{{Name: "x"}}},
		{Name: "x", Imports: []project.ImportMeta{{Name: "y"}}},
		{Name: "y", Imports: []project.ImportMeta{{Name: "z"}}},
		{Name: "z", Imports: []project.ImportMeta{{Name: "x"}, {Name: "base"}}},
		{Name: "base"},
	}
	nodes := make([]ModuleNode, 0, len(metas))
	for _, m := range metas {
		nodes = append(nodes, ModuleNode{Meta: m})
	}
	idx := BuildIndex(metas)
	graph, _ := BuildGraph(idx, nodes)

	topo := ToposortKahn(graph)
	if !topo.Cyclic {
		t.Fatalf("expected a cycle")
	}
	if got := idsToNames(idx, topo.Cycles); !slices.Equal(got, []string{"base", "x", "y", "z"}) {
		t.Fatalf("leftover = %v", got)
	}
	if got := strings.Join(idsToNames(idx, topo.Path), " -> "); got != "x -> y -> z -> x" {
		t.Fatalf("cycle path = %q", got)
	}
	if got := idsToNames(idx, topo.Order); !slices.Equal(got, []string{"entry"}) {
		t.Fatalf("order = %v, want [entry]", got)
	}
}
