package diag

import (
	"testing"

	"hdlfront/internal/source"
)

func TestBagLimitAndSort(t *testing.T) {
	bag := NewBag(2)
	r := BagReporter{Bag: bag}
	ReportWarning(r, TypeWarnTruncatingCast, source.Span{File: 1, Start: 9, End: 10}, "late")
	r.Report(TypeMismatch, SevError, source.Span{File: 1, Start: 1, End: 2}, "early", nil)
	if bag.Add(NewError(TypeInvalid, source.Span{}, "dropped")) {
		t.Fatalf("expected bag to be full")
	}
	bag.Sort()
	items := bag.Items()
	if len(items) != 2 || items[0].Message != "early" {
		t.Fatalf("unexpected order: %+v", items)
	}
	if !bag.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestCodeID(t *testing.T) {
	if got := TypeUnification.ID(); got != "TYP3003" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := Code(9999).Title(); got != "Unknown error" {
		t.Fatalf("unexpected title %q", got)
	}
}
