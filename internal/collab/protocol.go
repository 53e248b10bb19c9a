package collab

import (
	"encoding/json"
	"fmt"

	"github.com/inamate/crosshair/internal/crosshair"
	"github.com/inamate/crosshair/internal/scene"
)

type Message struct {
	Type     string          `json:"type"`
	SceneID  string          `json:"sceneId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	TypeError = "error"

	// Connection
	TypeWelcome = "welcome"

	// Crosshair, client to server
	TypeShow    = "crosshair.show"
	TypeInput   = "crosshair.input"
	TypeConfirm = "crosshair.confirm"
	TypeCancel  = "crosshair.cancel"

	// Crosshair, server to client
	TypeState     = "crosshair.state"
	TypeInvalid   = "crosshair.invalid"
	TypeResolved  = "crosshair.resolved"
	TypeCancelled = "crosshair.cancelled"

	// Scene
	TypeSelectionSet  = "selection.set"
	TypeObjectMove    = "object.move"
	TypeObjectMoved   = "object.moved"
	TypeSceneReplaced = "scene.replaced"
)

type WelcomePayload struct {
	ClientID string   `json:"clientId"`
	SceneID  string   `json:"sceneId"`
	Presets  []string `json:"presets"`
}

// SceneReplacedPayload tells a room the scene was rewritten; clients refetch it.
type SceneReplacedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ShowPayload starts a crosshair. Config is layered over the named preset.
type ShowPayload struct {
	Preset   string             `json:"preset,omitempty"`
	Config   crosshair.Config   `json:"config"`
	TargetID string             `json:"targetId,omitempty"`
	Collect  []scene.ObjectType `json:"collect,omitempty"`
}

// InputPayload carries one pointer, wheel or key event.
type InputPayload struct {
	Event  string   `json:"event"` // move | down | wheel | key
	X      float64  `json:"x,omitempty"`
	Y      float64  `json:"y,omitempty"`
	Button int      `json:"button,omitempty"`
	Delta  float64  `json:"delta,omitempty"`
	Mods   []string `json:"mods,omitempty"` // shift | ctrl | alt
	Key    string   `json:"key,omitempty"`
}

// ToEvent converts the payload into a session event.
func (p InputPayload) ToEvent() (crosshair.Event, error) {
	switch p.Event {
	case "move":
		return crosshair.PointerMove{X: p.X, Y: p.Y}, nil
	case "down":
		return crosshair.PointerDown{Button: crosshair.Button(p.Button), X: p.X, Y: p.Y}, nil
	case "wheel":
		mods, err := parseMods(p.Mods)
		if err != nil {
			return nil, err
		}
		return crosshair.Wheel{Delta: p.Delta, Mods: mods}, nil
	case "key":
		return crosshair.Key{Name: p.Key}, nil
	default:
		return nil, fmt.Errorf("unknown input event %q", p.Event)
	}
}

func parseMods(names []string) (crosshair.Mod, error) {
	var mods crosshair.Mod
	for _, n := range names {
		switch n {
		case "shift":
			mods |= crosshair.ModShift
		case "ctrl":
			mods |= crosshair.ModCtrl
		case "alt":
			mods |= crosshair.ModAlt
		default:
			return 0, fmt.Errorf("unknown modifier %q", n)
		}
	}
	return mods, nil
}

type StatePayload struct {
	SessionID string          `json:"sessionId"`
	State     crosshair.State `json:"state"`
	Valid     bool            `json:"valid"`
}

type InvalidPayload struct {
	SessionID string          `json:"sessionId"`
	State     crosshair.State `json:"state"`
	Reason    string          `json:"reason"`
}

type ResolvedPayload struct {
	SessionID string                              `json:"sessionId"`
	State     crosshair.State                     `json:"state"`
	Order     []scene.ObjectType                  `json:"order,omitempty"`
	Collected map[scene.ObjectType][]scene.Object `json:"collected,omitempty"`
}

type CancelledPayload struct {
	SessionID string `json:"sessionId"`
}

type SelectionPayload struct {
	IDs []string `json:"ids"`
}

type ObjectMovePayload struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(ErrorPayload{Message: err.Error()})
		typ = TypeError
	}
	return &Message{Type: typ, Payload: data}
}
