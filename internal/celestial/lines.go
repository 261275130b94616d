package celestial

import "fmt"

// FallbackLine is used for bodies without a canned line
const FallbackLine = "Nice to chat with you!"

var cannedLines = map[string]string{
	"Mercury": "I'm the fastest planet around the Sun!",
	"Venus":   "They call me Earth's twin.",
	"Earth":   "Hello, fellow human! You know me well.",
	"Mars":    "The Red Planet, waiting for your visit someday!",
	"Jupiter": "I'm the largest planet—King of the Solar System.",
	"Saturn":  "My rings are my crown jewel. Aren’t they stunning?",
	"Uranus":  "An ice giant spinning on its side. Quite unique, huh?",
	"Neptune": "The windiest planet—you better hold on tight!",
}

// CannedLine returns the fixed line for a body name. Lookup is exact.
func CannedLine(name string) string {
	if line, ok := cannedLines[name]; ok {
		return line
	}
	return FallbackLine
}

// Greeting is the first line a body says when a conversation opens
func Greeting(name string) string {
	return fmt.Sprintf("Hello! I'm %s. Ask me something!", name)
}
