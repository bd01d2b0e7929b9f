package meeting

import (
	"strings"
	"testing"
)

func TestNewLink(t *testing.T) {
	link := NewLink()
	if !strings.HasPrefix(link, "https://meet.jit.si/MedHelpConsultation") {
		t.Fatalf("unexpected link prefix: %s", link)
	}
	if !strings.HasSuffix(link, "#config.prejoinPageEnabled=true") {
		t.Fatalf("missing room config fragment: %s", link)
	}
	if strings.Contains(strings.TrimPrefix(link, "https://meet.jit.si/"), "-") {
		t.Fatalf("room name should not contain hyphens: %s", link)
	}
	if NewLink() == link {
		t.Fatal("links must be unique per call")
	}
}
