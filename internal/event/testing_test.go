package event

// Test fixtures shared by the package tests.

const (
	kindGame Kind = "game"
	kindWave Kind = "wave"
)

type gameEvent struct{ id int }

func (gameEvent) Kind() Kind { return kindGame }

type waveEvent struct{ wave int }

func (waveEvent) Kind() Kind { return kindWave }

// recorder is a listener that remembers what it received.
type recorder struct {
	name   string
	got    []Event
	onCall func(Event)
}

func (r *recorder) OnEvent(evt Event) {
	r.got = append(r.got, evt)
	if r.onCall != nil {
		r.onCall(evt)
	}
}

func (r *recorder) calls() int { return len(r.got) }

// orderLog returns a listener factory whose listeners append their name to log.
func orderLog(log *[]string) func(name string) *recorder {
	return func(name string) *recorder {
		r := &recorder{name: name}
		r.onCall = func(Event) { *log = append(*log, name) }
		return r
	}
}
