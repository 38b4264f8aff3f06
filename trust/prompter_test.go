package trust

import (
	"bytes"
	"strings"
	"testing"
)

func TestNonInteractivePrompterAlwaysDeclines(t *testing.T) {
	p := NonInteractivePrompter{}
	if p.Confirm("trust this?") {
		t.Fatalf("NonInteractivePrompter.Confirm must always return false")
	}
}

func TestTTYPrompterReadsYesFromInjectedReader(t *testing.T) {
	p := &TTYPrompter{In: strings.NewReader("y\n"), Out: &bytes.Buffer{}}
	if !p.Confirm("trust this?") {
		t.Fatalf("expected Confirm to accept a 'y' answer")
	}
}

func TestTTYPrompterDeclinesOnAnythingElse(t *testing.T) {
	p := &TTYPrompter{In: strings.NewReader("n\n"), Out: &bytes.Buffer{}}
	if p.Confirm("trust this?") {
		t.Fatalf("expected Confirm to decline an 'n' answer")
	}
}

func TestTTYPrompterDeclinesOnEmptyInput(t *testing.T) {
	p := &TTYPrompter{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	if p.Confirm("trust this?") {
		t.Fatalf("expected Confirm to decline when the reader yields nothing")
	}
}
