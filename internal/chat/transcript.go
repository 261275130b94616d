package chat

// UserSpeaker labels entries typed by the user
const UserSpeaker = "You"

// SystemSpeaker labels relay failure notices
const SystemSpeaker = "System"

// Entry is one line of a conversation
type Entry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Transcript is an append-only list of entries with a scroll position.
// Appending always scrolls back to the latest entry.
type Transcript struct {
	entries    []Entry
	scrollBack int
}

// Append adds an entry and scrolls to it
func (t *Transcript) Append(speaker, text string) {
	t.entries = append(t.entries, Entry{Speaker: speaker, Text: text})
	t.scrollBack = 0
}

// Entries returns a copy of all entries in order
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Scroll moves the view by delta entries; positive moves toward older ones
func (t *Transcript) Scroll(delta int) {
	t.scrollBack += delta
	if t.scrollBack < 0 {
		t.scrollBack = 0
	}
	if limit := len(t.entries) - 1; t.scrollBack > limit {
		t.scrollBack = limit
		if t.scrollBack < 0 {
			t.scrollBack = 0
		}
	}
}

// Visible returns up to n entries ending at the current scroll position
func (t *Transcript) Visible(n int) []Entry {
	end := len(t.entries) - t.scrollBack
	start := end - n
	if start < 0 {
		start = 0
	}
	return t.Entries()[start:end]
}
