package tasklist

import (
	"fmt"
	"strconv"
	"strings"

	appLog "dutycal/internal/log"
)

// Zone is a drop target of the board.
type Zone string

const (
	ZoneIncomplete Zone = "incomplete"
	ZoneComplete   Zone = "complete"
)

func ParseZone(s string) (Zone, error) {
	switch z := Zone(strings.ToLower(strings.TrimSpace(s))); z {
	case ZoneIncomplete, ZoneComplete:
		return z, nil
	}
	return "", fmt.Errorf("unknown zone %q", s)
}

// DropOnto moves task id into zone: complete marks it done, incomplete
// clears it. Dropping into the zone it is already in changes nothing.
// Unknown zones are ignored and reported as false.
func (b *Board) DropOnto(zone Zone, id int) bool {
	switch zone {
	case ZoneComplete:
		b.SetDone(id, true)
	case ZoneIncomplete:
		b.SetDone(id, false)
	default:
		return false
	}
	return true
}

// BeginDrag records the pending drag payload carried by a drag source. The
// payload must be the decimal id of a current task; anything else leaves no
// payload and returns false. A previous payload is replaced either way.
func (b *Board) BeginDrag(raw string) bool {
	b.drag = nil
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || b.indexOf(id) < 0 {
		appLog.Debug("drag payload ignored", "payload", raw)
		return false
	}
	b.drag = &id
	return true
}

// CancelDrag clears the pending payload.
func (b *Board) CancelDrag() {
	b.drag = nil
}

// Dragging returns the pending payload, if any.
func (b *Board) Dragging() (int, bool) {
	if b.drag == nil {
		return 0, false
	}
	return *b.drag, true
}

// Drop consumes the pending payload and applies it to zone. Without a
// payload it does nothing and returns false. The payload is cleared even
// when zone is unknown.
func (b *Board) Drop(zone Zone) bool {
	if b.drag == nil {
		return false
	}
	id := *b.drag
	b.drag = nil
	return b.DropOnto(zone, id)
}
