package main

import (
	"reflect"
	"testing"
)

var (
	fooRecord = PackageRecord{Name: "Foo App", ID: "Foo.App", Version: "1.2.3"}
	barRecord = PackageRecord{Name: "Bar", ID: "Bar.Bar", Version: "2.0"}
)

func TestScreenStateInitial(t *testing.T) {
	s := NewScreenState()
	if s.Screen() != ScreenSearch {
		t.Errorf("Screen() = %v, expected search", s.Screen())
	}
	if len(s.Results()) != 0 {
		t.Errorf("expected no results, got %+v", s.Results())
	}
}

func TestScreenStateSelectPendingThenLoaded(t *testing.T) {
	s := NewScreenState()
	gen := s.NewSearchIssued()
	s.SetResults(gen, []PackageRecord{fooRecord, barRecord})

	view := s.SelectResult(fooRecord)
	if s.Screen() != ScreenDetail {
		t.Fatalf("Screen() = %v, expected detail", s.Screen())
	}
	if !view.Pending || view.Description != PendingDetail {
		t.Errorf("expected pending view, got %+v", view)
	}

	if !s.StoreDetail(gen, fooRecord.ID, "Great tool") {
		t.Fatal("StoreDetail rejected the current generation")
	}
	view = s.CurrentDetail()
	expected := DetailView{Record: fooRecord, Description: "Great tool"}
	if !reflect.DeepEqual(view, expected) {
		t.Errorf("CurrentDetail() = %+v, expected %+v", view, expected)
	}
}

func TestScreenStateNewSearchClearsCache(t *testing.T) {
	s := NewScreenState()
	gen := s.NewSearchIssued()
	s.SetResults(gen, []PackageRecord{fooRecord})
	s.StoreDetail(gen, fooRecord.ID, "old description")
	s.SelectResult(fooRecord)

	next := s.NewSearchIssued()
	if next == gen {
		t.Fatal("NewSearchIssued should start a new generation")
	}
	if s.Screen() != ScreenSearch {
		t.Errorf("new search should return to the search screen, got %v", s.Screen())
	}
	if _, ok := s.Detail(fooRecord.ID); ok {
		t.Error("details from the previous search should be gone")
	}
	if len(s.Results()) != 0 {
		t.Errorf("results should be cleared, got %+v", s.Results())
	}
}

func TestScreenStateDropsStaleResults(t *testing.T) {
	s := NewScreenState()
	old := s.NewSearchIssued()
	current := s.NewSearchIssued()

	if s.SetResults(old, []PackageRecord{barRecord}) {
		t.Error("SetResults accepted a superseded generation")
	}
	if s.StoreDetail(old, barRecord.ID, "stale") {
		t.Error("StoreDetail accepted a superseded generation")
	}
	if _, ok := s.Detail(barRecord.ID); ok {
		t.Error("stale detail was cached")
	}

	if !s.SetResults(current, []PackageRecord{fooRecord}) {
		t.Fatal("SetResults rejected the current generation")
	}
	if !reflect.DeepEqual(s.Results(), []PackageRecord{fooRecord}) {
		t.Errorf("Results() = %+v", s.Results())
	}
}

func TestScreenStateGoBack(t *testing.T) {
	s := NewScreenState()
	gen := s.NewSearchIssued()
	s.SetResults(gen, []PackageRecord{fooRecord})
	s.SelectResult(fooRecord)

	s.GoBack()
	if s.Screen() != ScreenSearch {
		t.Errorf("Screen() = %v, expected search", s.Screen())
	}
	// Results survive going back.
	if len(s.Results()) != 1 {
		t.Errorf("results lost on back: %+v", s.Results())
	}

	s.GoBack()
	if s.Screen() != ScreenSearch {
		t.Errorf("GoBack on the search screen should be a no-op, got %v", s.Screen())
	}
}

func TestScreenString(t *testing.T) {
	if ScreenSearch.String() != "search" || ScreenDetail.String() != "detail" {
		t.Errorf("unexpected names: %q %q", ScreenSearch, ScreenDetail)
	}
}
