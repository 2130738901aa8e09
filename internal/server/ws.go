package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"TimeBounce/internal/sim"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type stepPayload struct {
	TimeStep float64 `json:"time_step"`
}

type stepFramesPayload struct {
	Frames int `json:"frames"`
}

type jumpPayload struct {
	Time float64 `json:"time"`
}

type startYPayload struct {
	StartY float64 `json:"start_y"`
}

type gravityPayload struct {
	Gravity float64 `json:"gravity"`
}

type autoPausePayload struct {
	Enabled bool `json:"enabled"`
}

func parseFloatOverride(values url.Values, key string) (*float64, bool) {
	raw := values.Get(key)
	if raw == "" {
		return nil, false
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return &val, true
}

// parseSimOverrides lets a viewer tune its own run from the connection URL,
// e.g. /ws?gravity=981&damping=0.9. Overrides only ever touch the session
// being opened.
func parseSimOverrides(values url.Values) (SimOverrides, bool) {
	var overrides SimOverrides
	var found bool

	if v, ok := parseFloatOverride(values, "gravity"); ok {
		overrides.Gravity = v
		found = true
	}
	if v, ok := parseFloatOverride(values, "damping"); ok {
		overrides.BounceDamping = v
		found = true
	}
	if v, ok := parseFloatOverride(values, "air"); ok {
		overrides.AirResistance = v
		found = true
	}
	if v, ok := parseFloatOverride(values, "fps"); ok {
		overrides.SubstepHz = v
		found = true
	}
	if v, ok := parseFloatOverride(values, "startY"); ok {
		overrides.StartHeight = v
		found = true
	}
	if v, ok := parseFloatOverride(values, "history"); ok {
		overrides.HistorySeconds = v
		found = true
	}
	return overrides, found
}

func serveWS(h *Hub, w http.ResponseWriter, r *http.Request) {
	overrides, _ := parseSimOverrides(r.URL.Query())
	cfg := overrides.apply(h.Cfg)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	defer conn.Close()

	sess, err := h.AddSession(cfg)
	if err != nil {
		log.Printf("rejecting connection: %v", err)
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer h.RemoveSession(sess.ID)
	log.Printf("session %s connected (%d active)", sess.ID, h.SessionCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Command replies flow through this channel so the connection has a
	// single writer: this goroutine.
	out := make(chan any, 16)

	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var inbound inboundMessage
			if err := json.Unmarshal(data, &inbound); err != nil {
				log.Printf("session %s: invalid JSON message: %v", sess.ID, err)
				select {
				case out <- errorMessage("invalid message"):
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case out <- handleCommand(sess, inbound):
			case <-ctx.Done():
				return
			}
		}
	}()

	// The play driver: while the run is playing, advance one sub-step per
	// tick and push the fresh state. The controller itself never schedules
	// steps.
	tick := time.NewTicker(time.Duration(float64(time.Second) * cfg.SubstepDt))
	defer tick.Stop()

	// Initial state push so the viewer renders before its first command.
	if err := conn.WriteJSON(sess.state(sess.Ctrl.GetState(), false)); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("session %s disconnected", sess.ID)
			return
		case msg := <-out:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-tick.C:
			snap, advanced := sess.Ctrl.Tick()
			if !advanced {
				continue
			}
			if err := conn.WriteJSON(stateMessage(snap, sess.Ctrl.History(), false)); err != nil {
				return
			}
		}
	}
}

// handleCommand dispatches one viewer command against the session's
// controller and returns the message to push back.
func handleCommand(sess *Session, in inboundMessage) any {
	ctrl := sess.Ctrl
	switch in.Type {
	case "get_state":
		return sess.state(ctrl.GetState(), false)

	case "reset":
		return sess.state(ctrl.Reset(), false)

	case "toggle_play":
		return sess.state(ctrl.TogglePlay(), false)

	case "step":
		var p stepPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage("invalid step payload")
		}
		res, err := ctrl.Step(p.TimeStep)
		if err != nil {
			return errorMessage(err.Error())
		}
		return sess.state(res.Snapshot, res.Truncated)

	case "step_frames":
		var p stepFramesPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage("invalid step_frames payload")
		}
		res := ctrl.StepFrames(p.Frames)
		return sess.state(res.Snapshot, res.Truncated)

	case "jump_to_time":
		var p jumpPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage("invalid jump_to_time payload")
		}
		res, err := ctrl.JumpToTime(p.Time)
		if err != nil {
			return errorMessage(err.Error())
		}
		return sess.state(res.Snapshot, res.Truncated)

	case "set_start_y":
		var p startYPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage("invalid set_start_y payload")
		}
		snap, err := ctrl.SetStartY(p.StartY)
		if err != nil {
			return errorMessage(err.Error())
		}
		return sess.state(snap, false)

	case "set_gravity":
		var p gravityPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage("invalid set_gravity payload")
		}
		snap, err := ctrl.SetGravity(p.Gravity)
		if err != nil {
			return errorMessage(err.Error())
		}
		return sess.state(snap, false)

	case "set_auto_pause":
		var p autoPausePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage("invalid set_auto_pause payload")
		}
		return sess.state(ctrl.SetAutoPause(p.Enabled), false)

	default:
		log.Printf("session %s: unknown message type %q", sess.ID, in.Type)
		return errorMessage("unknown command " + in.Type)
	}
}

func (s *Session) state(snap sim.Snapshot, truncated bool) stateMsg {
	return stateMessage(snap, s.Ctrl.History(), truncated)
}
