package resolve

import "testing"

type record struct {
	ID   string
	Name string
}

func nameOf(r record) string { return r.Name }

func TestByNameExactBeatsSubstring(t *testing.T) {
	items := []record{
		{ID: "1", Name: "Apollo Extended"},
		{ID: "2", Name: "Apollo"},
	}
	got, ok := ByName(items, nameOf, "apollo")
	if !ok || got.ID != "2" {
		t.Fatalf("got %+v, want exact match to win", got)
	}
}

func TestByNameBidirectionalSubstring(t *testing.T) {
	items := []record{{ID: "1", Name: "Apollo Program"}}
	if got, ok := ByName(items, nameOf, "apollo"); !ok || got.ID != "1" {
		t.Fatalf("query inside name failed: %+v", got)
	}
	if got, ok := ByName(items, nameOf, "the Apollo Program launch"); !ok || got.ID != "1" {
		t.Fatalf("name inside query failed: %+v", got)
	}
}

func TestByNameCollectionOrderBreaksTies(t *testing.T) {
	items := []record{
		{ID: "1", Name: "Sprint One"},
		{ID: "2", Name: "Sprint Only"},
	}
	got, ok := ByName(items, nameOf, "sprint on")
	if !ok || got.ID != "1" {
		t.Fatalf("got %+v, want first in collection order", got)
	}
}

func TestByNameMiss(t *testing.T) {
	items := []record{{ID: "1", Name: "Apollo"}}
	if _, ok := ByName(items, nameOf, "Zeus"); ok {
		t.Fatal("unrelated query must not match")
	}
	if _, ok := ByName(items, nameOf, "  "); ok {
		t.Fatal("blank query must not match")
	}
}

func TestByEmailExactOnly(t *testing.T) {
	type user struct{ Email string }
	items := []user{{Email: "Alice@Example.com"}}
	emailOf := func(u user) string { return u.Email }

	if _, ok := ByEmail(items, emailOf, "alice@example.com"); !ok {
		t.Fatal("case-insensitive exact match failed")
	}
	if _, ok := ByEmail(items, emailOf, "alice@example"); ok {
		t.Fatal("partial email must not match")
	}
}
