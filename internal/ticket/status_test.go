package ticket

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	for _, valid := range []string{"open", "in_progress", "resolved", "closed"} {
		if _, err := Parse(valid); err != nil {
			t.Errorf("Parse(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "Open", "done", "in-progress"} {
		if _, err := Parse(invalid); err == nil {
			t.Errorf("Parse(%q) should fail", invalid)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusOpen, StatusInProgress},
		{StatusOpen, StatusClosed},
		{StatusInProgress, StatusResolved},
		{StatusResolved, StatusClosed},
		{StatusResolved, StatusOpen},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusOpen, StatusResolved},
		{StatusInProgress, StatusOpen},
		{StatusInProgress, StatusClosed},
		{StatusClosed, StatusOpen},
		{StatusClosed, StatusInProgress},
		{StatusOpen, StatusOpen},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be denied", tr.from, tr.to)
		}
	}
}

func TestTransition(t *testing.T) {
	got, err := Transition(StatusOpen, StatusInProgress)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got != StatusInProgress {
		t.Errorf("status = %q, want in_progress", got)
	}

	got, err = Transition(StatusClosed, StatusOpen)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
	if got != StatusClosed {
		t.Errorf("failed transition should keep the old status, got %q", got)
	}
}
