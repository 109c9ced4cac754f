package routersource

import (
	"reflect"
	"sort"
	"testing"
)

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestExtractHostnamesSingleHost(t *testing.T) {
	got := extractHostnames("Host(`app.example.com`)")
	if !reflect.DeepEqual(got, []string{"app.example.com"}) {
		t.Errorf("extractHostnames() = %v", got)
	}
}

func TestExtractHostnamesOrCombinator(t *testing.T) {
	got := sorted(extractHostnames("Host(`a.example.com`) || Host(`b.example.com`)"))
	want := []string{"a.example.com", "b.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractHostnames() = %v, want %v", got, want)
	}
}

func TestExtractHostnamesCommaInsideHost(t *testing.T) {
	got := sorted(extractHostnames("Host(`a.example.com,b.example.com`)"))
	want := []string{"a.example.com", "b.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractHostnames() = %v, want %v", got, want)
	}
}

func TestExtractHostnamesWithPathPrefix(t *testing.T) {
	got := extractHostnames("Host(`app.example.com`) && PathPrefix(`/api`)")
	if !reflect.DeepEqual(got, []string{"app.example.com"}) {
		t.Errorf("extractHostnames() = %v", got)
	}
}

func TestExtractHostnamesHostRegexpStripsClass(t *testing.T) {
	got := extractHostnames("HostRegexp(`^app\\.example\\.com{.+}$`)")
	if !reflect.DeepEqual(got, []string{"app.example.com"}) {
		t.Errorf("extractHostnames() = %v, want [app.example.com]", got)
	}
}

func TestExtractHostnamesRejectsTemplatedHost(t *testing.T) {
	got := extractHostnames("Host(`{subdomain}.example.com`)")
	if len(got) != 0 {
		t.Errorf("extractHostnames() = %v, want none", got)
	}
}

func TestExtractHostnamesDiscardsInvalidHostRegexp(t *testing.T) {
	got := extractHostnames("HostRegexp(`^[a-z]+\\.example\\.com$`)")
	if len(got) != 0 {
		t.Errorf("extractHostnames() = %v, want none (contains regex metacharacters)", got)
	}
}

func TestExtractHostnamesDeduplicates(t *testing.T) {
	got := extractHostnames("Host(`app.example.com`) || Host(`app.example.com`)")
	if !reflect.DeepEqual(got, []string{"app.example.com"}) {
		t.Errorf("extractHostnames() = %v, want single occurrence", got)
	}
}
