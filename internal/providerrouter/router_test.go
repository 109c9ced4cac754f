package providerrouter

import "testing"

func TestRouteLongestSuffixWins(t *testing.T) {
	r := New([]Registration{
		{Name: "general", Zone: "example.com"},
		{Name: "internal", Zone: "svc.example.com"},
	})

	got, ok := r.Route("app.svc.example.com")
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Name != "internal" {
		t.Errorf("Route() = %q, want %q", got.Name, "internal")
	}
}

func TestRouteExactZoneMatch(t *testing.T) {
	r := New([]Registration{{Name: "general", Zone: "example.com"}})

	got, ok := r.Route("example.com")
	if !ok || got.Name != "general" {
		t.Errorf("Route(apex) = %+v, %v, want general/true", got, ok)
	}
}

func TestRouteFallsBackToDefault(t *testing.T) {
	r := New([]Registration{
		{Name: "specific", Zone: "internal.example.com"},
		{Name: "catchall", IsDefault: true},
	})

	got, ok := r.Route("app.other.net")
	if !ok || got.Name != "catchall" {
		t.Errorf("Route() = %+v, %v, want catchall/true", got, ok)
	}
}

func TestRouteNoMatchNoDefault(t *testing.T) {
	r := New([]Registration{{Name: "specific", Zone: "internal.example.com"}})

	_, ok := r.Route("app.other.net")
	if ok {
		t.Error("expected no match")
	}
}

func TestRouteTieBreaksByInsertionOrder(t *testing.T) {
	r := New([]Registration{
		{Name: "first", Zone: "example.com"},
		{Name: "second", Zone: "example.com"},
	})

	got, ok := r.Route("app.example.com")
	if !ok || got.Name != "first" {
		t.Errorf("Route() = %+v, %v, want first/true", got, ok)
	}
}

func TestRouteDoesNotMatchUnrelatedSuffix(t *testing.T) {
	r := New([]Registration{{Name: "specific", Zone: "example.com"}})

	_, ok := r.Route("notexample.com")
	if ok {
		t.Error("expected notexample.com not to match zone example.com")
	}
}

func TestRouteIgnoresTrailingDots(t *testing.T) {
	r := New([]Registration{{Name: "general", Zone: "example.com."}})

	got, ok := r.Route("app.example.com.")
	if !ok || got.Name != "general" {
		t.Errorf("Route() = %+v, %v, want general/true", got, ok)
	}
}
