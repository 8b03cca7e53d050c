package httpadapter

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PabloGalante/farum-journey/internal/app/typewriter"
	"github.com/PabloGalante/farum-journey/internal/domain"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is open for the whole API; the socket follows suit.
	CheckOrigin: func(*http.Request) bool { return true },
}

const writeWait = 5 * time.Second

type revealFrame struct {
	Category string `json:"category"`
	Visible  string `json:"visible"`
	Done     bool   `json:"done"`
}

// handleReveal streams the latest advice for a category through a
// typewriter. When newer advice lands the reveal restarts. The socket stays
// open until the client closes it.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request, id domain.JourneyID, cat domain.Category) {
	ctx := r.Context()
	log := observability.LoggerFromContext(ctx).With("category", cat)

	text, err := s.journeys.Advice(ctx, id, cat)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	frames := make(chan revealFrame, 16)
	stop := make(chan struct{})

	// Callbacks run with the typewriter locked; last is only touched there.
	var last string
	send := func(f revealFrame) {
		select {
		case frames <- f:
		case <-stop:
		}
	}
	tw := typewriter.New(typewriter.Options{
		Clock: s.opts.Clock,
		Tick:  s.opts.RevealTick,
		OnUpdate: func(visible string) {
			last = visible
			send(revealFrame{Category: string(cat), Visible: visible})
		},
		OnComplete: func() {
			send(revealFrame{Category: string(cat), Visible: last, Done: true})
		},
	})
	defer tw.Close()
	defer close(stop)

	// The reader notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// SetText may block on a full frame buffer, so it runs off the writer loop.
	texts := make(chan string, 1)
	texts <- text
	go func() {
		for {
			select {
			case t := <-texts:
				tw.SetText(t)
			case <-stop:
				return
			}
		}
	}()

	poll := time.NewTicker(s.opts.RevealPoll)
	defer poll.Stop()

	for {
		select {
		case f := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				log.Info("reveal socket closed", "error", err)
				return
			}

		case <-poll.C:
			latest, err := s.journeys.Advice(ctx, id, cat)
			if err != nil {
				log.Warn("reveal advice lookup failed", "error", err)
				continue
			}
			if latest != text {
				text = latest
				select {
				case texts <- latest:
				default:
					// A newer text is already queued; replace it.
					select {
					case <-texts:
					default:
					}
					texts <- latest
				}
			}

		case <-gone:
			return

		case <-ctx.Done():
			return
		}
	}
}
