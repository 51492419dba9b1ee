package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestBagRespectsLimit(t *testing.T) {
	bag := NewBag(2)
	for i := range 3 {
		ok := bag.Add(NewError(TransUnsupportedConstruct, InDef(fmt.Sprintf("d%d", i)), "x"))
		if want := i < 2; ok != want {
			t.Fatalf("Add #%d = %v, want %v", i, ok, want)
		}
	}
	if bag.Len() != 2 {
		t.Fatalf("bag.Len() = %d, want 2", bag.Len())
	}
	if !bag.HasErrors() {
		t.Fatalf("expected errors in bag")
	}
}

func TestBagSortIsDeterministic(t *testing.T) {
	bag := NewBag(10)
	bag.Add(New(SevWarning, TransSkipped, InDef("b"), "skip"))
	bag.Add(NewError(TransMultipleLoopExits, At("a", 3, -1), "exits"))
	bag.Add(NewError(TransUnsupportedConstruct, At("a", 1, 2), "unsupported"))
	bag.Add(NewError(TransAmbiguousTraitImpl, At("a", 1, 2), "ambiguous"))
	bag.Sort()

	got := make([]Code, 0, bag.Len())
	for _, d := range bag.Items() {
		got = append(got, d.Code)
	}
	want := []Code{TransUnsupportedConstruct, TransAmbiguousTraitImpl, TransMultipleLoopExits, TransSkipped}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBagDedup(t *testing.T) {
	bag := NewBag(10)
	bag.Add(NewError(TransFailedDependency, InDef("a"), "x"))
	bag.Add(NewError(TransFailedDependency, InDef("a"), "y"))
	bag.Add(NewError(TransFailedDependency, InDef("b"), "x"))
	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("bag.Len() = %d after dedup, want 2", bag.Len())
	}
}

func TestErrorLocationAndCode(t *testing.T) {
	base := Errorf(TransUnsupportedConstruct, "set_discriminant on %s", "L1")
	located := base.At(4, 2).In("demo.f")
	if base.Loc.Def != "" || base.Loc.Block != -1 {
		t.Fatalf("At/In must not mutate the receiver: %+v", base.Loc)
	}
	if got, want := located.Error(), "TRN5001 demo.f bb4[2]: set_discriminant on L1"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	// An inner location wins over outer attribution.
	again := located.At(9, 0).In("other")
	if again.Loc.Block != 4 || again.Loc.Def != "demo.f" {
		t.Fatalf("location overwritten: %+v", again.Loc)
	}

	wrapped := fmt.Errorf("translate: %w", located)
	if !IsCode(wrapped, TransUnsupportedConstruct) {
		t.Fatalf("IsCode should see through wrapping")
	}
	if CodeOf(errors.New("plain")) != UnknownCode {
		t.Fatalf("plain errors have no code")
	}
}

func TestLocateWrapsPlainErrors(t *testing.T) {
	err := Locate(errors.New("bb2: target bb9 does not exist"), "demo.g", -1, -1)
	if err.Code != TransInvalidIR {
		t.Fatalf("code = %v, want %v", err.Code, TransInvalidIR)
	}
	if err.Loc.Def != "demo.g" {
		t.Fatalf("def = %q", err.Loc.Def)
	}
}

func TestCodeIDs(t *testing.T) {
	cases := map[Code]string{
		IOLoadFileError:           "IO4001",
		TransCircularDependency:   "TRN5004",
		CfgInvalidValue:           "CFG6001",
		UnknownCode:               "E0000",
		TransUnsupportedConstruct: "TRN5001",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Errorf("%d.ID() = %q, want %q", code, got, want)
		}
	}
}

func TestBagAtLeast(t *testing.T) {
	bag := NewBag(10)
	bag.Add(New(SevInfo, TransSkipped, InDef("a"), "note"))
	bag.Add(New(SevWarning, TransSkipped, InDef("b"), "skip"))
	bag.Add(NewError(TransFailedDependency, InDef("c"), "x"))

	if got := bag.AtLeast(SevWarning).Len(); got != 2 {
		t.Fatalf("AtLeast(warning).Len() = %d, want 2", got)
	}
	errs := bag.AtLeast(SevError)
	if errs.Len() != 1 || errs.Items()[0].Primary.Def != "c" {
		t.Fatalf("AtLeast(error) = %+v", errs.Items())
	}
	if bag.Len() != 3 {
		t.Fatalf("receiver changed: Len() = %d", bag.Len())
	}
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{"info": SevInfo, "WARN": SevWarning, " warning ": SevWarning, "Error": SevError} {
		got, err := ParseSeverity(in)
		if err != nil || got != want {
			t.Fatalf("ParseSeverity(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
	if SevError.String() != "ERROR" || Severity(9).String() != "UNKNOWN" {
		t.Fatalf("unexpected severity names")
	}
}
