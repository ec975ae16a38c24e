package domain

// Conventional system intents. A domain is not required to define them;
// their absence is a validation warning, not an error.
const (
	IntentGreet   = "greet"
	IntentExit    = "exit"
	IntentUnknown = "unknown"
)

// Markers pushed onto the conversation flow ring.
const (
	FlowSessionStart           = "session_start"
	FlowSlotCollectionComplete = "slot_collection_complete"
)

// MaxFlowLength caps the conversation flow ring; the oldest entry is
// evicted first.
const MaxFlowLength = 10

// TrivialIntent reports whether an intent should not become the
// conversation topic (greetings, exits and fallbacks carry no subject).
func TrivialIntent(name string) bool {
	switch name {
	case IntentGreet, IntentExit, IntentUnknown, "":
		return true
	}
	return false
}
