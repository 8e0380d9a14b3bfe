package body

import "testing"

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Unread:    "UNREAD",
		Reading:   "READING",
		Read:      "READ",
		Discarded: "DISCARDED",
		TooLarge:  "TOO_LARGE",
	}

	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	terminal := map[State]bool{
		Unread:    false,
		Reading:   false,
		Read:      true,
		Discarded: true,
		TooLarge:  true,
	}

	for st, want := range terminal {
		if got := st.terminal(); got != want {
			t.Errorf("State(%d).terminal() = %v, want %v", st, got, want)
		}
	}
}
