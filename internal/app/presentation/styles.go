// Package presentation holds the stylesheet used by the reveal view.
package presentation

import "sync"

const revealCSS = `@keyframes journey-reveal-blink {
  0%, 49% { opacity: 1; }
  50%, 100% { opacity: 0; }
}

@keyframes journey-reveal-fade {
  from { opacity: 0; transform: translateY(2px); }
  to { opacity: 1; transform: none; }
}

.journey-reveal {
  white-space: pre-wrap;
  animation: journey-reveal-fade 180ms ease-out;
}

.journey-reveal[data-done="false"]::after {
  content: "|";
  margin-left: 1px;
  animation: journey-reveal-blink 1s step-end infinite;
}
`

var (
	mu         sync.Mutex
	registered bool
	sheet      string
)

// Register installs the reveal stylesheet. It runs once per process; later
// calls are no-ops. It reports whether this call did the registration.
func Register() bool {
	mu.Lock()
	defer mu.Unlock()
	if registered {
		return false
	}
	registered = true
	sheet = revealCSS
	return true
}

// Registered reports whether Register has run.
func Registered() bool {
	mu.Lock()
	defer mu.Unlock()
	return registered
}

// Stylesheet returns the registered CSS, or "" before Register.
func Stylesheet() string {
	mu.Lock()
	defer mu.Unlock()
	return sheet
}
