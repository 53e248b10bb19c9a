//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/crosshair/internal/collect"
	"github.com/inamate/crosshair/internal/crosshair"
	"github.com/inamate/crosshair/internal/placement"
	"github.com/inamate/crosshair/internal/preset"
	"github.com/inamate/crosshair/internal/scene"
)

var (
	sc      *scene.Scene
	presets = preset.NewRegistry(nil)
	session *crosshair.Session
)

type showRequest struct {
	Preset   string             `json:"preset,omitempty"`
	Config   crosshair.Config   `json:"config"`
	TargetID string             `json:"targetId,omitempty"`
	Collect  []scene.ObjectType `json:"collect,omitempty"`
}

func main() {
	sc = scene.New(scene.NewSampleDocument("scene_sample"))

	crosshairEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	crosshairEngine.Set("loadScene", js.FuncOf(loadScene))
	crosshairEngine.Set("loadSampleScene", js.FuncOf(loadSampleScene))
	crosshairEngine.Set("loadPresets", js.FuncOf(loadPresets))
	crosshairEngine.Set("setSelection", js.FuncOf(setSelection))
	crosshairEngine.Set("moveObject", js.FuncOf(moveObject))
	crosshairEngine.Set("show", js.FuncOf(show))
	crosshairEngine.Set("pointerMove", js.FuncOf(pointerMove))
	crosshairEngine.Set("pointerDown", js.FuncOf(pointerDown))
	crosshairEngine.Set("wheel", js.FuncOf(wheel))
	crosshairEngine.Set("key", js.FuncOf(key))
	crosshairEngine.Set("confirm", js.FuncOf(confirm))
	crosshairEngine.Set("cancel", js.FuncOf(cancel))

	// --- Queries (frontend ← backend) ---
	crosshairEngine.Set("hitTest", js.FuncOf(hitTest))
	crosshairEngine.Set("getState", js.FuncOf(getState))
	crosshairEngine.Set("getScene", js.FuncOf(getScene))
	crosshairEngine.Set("getSelection", js.FuncOf(getSelection))
	crosshairEngine.Set("getPresets", js.FuncOf(getPresets))
	crosshairEngine.Set("collect", js.FuncOf(collectObjects))

	js.Global().Set("crosshairEngine", crosshairEngine)
	js.Global().Set("crosshairWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing scene JSON")
	}
	loaded, err := scene.Load([]byte(args[0].String()))
	if err != nil {
		return fail(err.Error())
	}
	endSession()
	sc = loaded
	return ok()
}

func loadSampleScene(this js.Value, args []js.Value) interface{} {
	sceneID := "scene_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		sceneID = args[0].String()
	}
	endSession()
	sc = scene.New(scene.NewSampleDocument(sceneID))
	return ok()
}

func loadPresets(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing presets YAML")
	}
	f, err := preset.Parse([]byte(args[0].String()))
	if err != nil {
		return fail(err.Error())
	}
	presets.Replace(f)
	return ok()
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		sc.SetSelection(nil)
		return nil
	}

	arr := args[0]
	length := arr.Length()
	ids := make([]string, length)
	for i := 0; i < length; i++ {
		ids[i] = arr.Index(i).String()
	}
	sc.SetSelection(ids)
	return nil
}

func moveObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return fail("usage: moveObject(id, x, y)")
	}
	if err := sc.MoveObject(args[0].String(), args[1].Float(), args[2].Float()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

// show(requestJSON, handlers) starts a crosshair. handlers may carry render,
// onShow, onMove, onConfirm, onCancel and onInvalidPlacement functions; each
// receives the state as JSON, and onConfirm also the collected objects.
func show(this js.Value, args []js.Value) interface{} {
	if active() {
		return fail(crosshairActive)
	}

	var req showRequest
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
			return fail(err.Error())
		}
	}
	var handlers js.Value
	if len(args) > 1 {
		handlers = args[1]
	}

	cfg, err := presets.Resolve(req.Preset, req.Config)
	if err != nil {
		return fail(err.Error())
	}

	opts := crosshair.Options{
		Grid:        sc.Grid(),
		Walls:       sc.Walls(),
		Bounds:      sc.Bounds(),
		Constraints: []placement.Constraint{placement.WithinBounds{}},
		Callbacks:   crosshair.Callbacks{},
	}
	if fn := handler(handlers, "render"); fn.Truthy() {
		opts.Renderer = crosshair.RendererFunc(func(st crosshair.State) {
			fn.Invoke(toJSON(st))
		})
	}
	for _, hook := range []crosshair.Hook{crosshair.HookShow, crosshair.HookMove, crosshair.HookCancel, crosshair.HookInvalidPlacement} {
		if fn := handler(handlers, string(hook)); fn.Truthy() {
			opts.Callbacks.On(hook, func(st crosshair.State, reason error) {
				msg := ""
				if reason != nil {
					msg = reason.Error()
				}
				fn.Invoke(toJSON(st), msg)
			})
		}
	}
	if fn := handler(handlers, string(crosshair.HookConfirm)); fn.Truthy() {
		types := req.Collect
		opts.Callbacks.On(crosshair.HookConfirm, func(st crosshair.State, _ error) {
			res := collect.CollectTypes(sc, st, types, nil)
			out := make(map[scene.ObjectType][]scene.Object, res.Len())
			for _, typ := range res.Keys() {
				out[typ], _ = res.Get(typ)
			}
			fn.Invoke(toJSON(st), toJSON(out))
		})
	}

	if req.TargetID != "" {
		var target *scene.Placeable
		target, err = sc.Placeable(req.TargetID)
		if err != nil {
			return fail(err.Error())
		}
		session, err = crosshair.ShowTarget(target, cfg, opts)
	} else {
		session, err = crosshair.Show(cfg, opts)
	}
	if err != nil {
		session = nil
		return fail(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "sessionId": session.ID()})
}

const crosshairActive = "a crosshair is already active"

func handler(handlers js.Value, name string) js.Value {
	if handlers.Type() != js.TypeObject {
		return js.Undefined()
	}
	fn := handlers.Get(name)
	if fn.Type() != js.TypeFunction {
		return js.Undefined()
	}
	return fn
}

func active() bool {
	return session != nil && !session.Phase().Terminal()
}

func endSession() {
	if active() {
		session.Cancel()
	}
	session = nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if !active() || len(args) < 2 {
		return nil
	}
	session.Handle(crosshair.PointerMove{X: args[0].Float(), Y: args[1].Float()})
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if !active() || len(args) < 3 {
		return nil
	}
	session.Handle(crosshair.PointerDown{
		Button: crosshair.Button(args[0].Int()),
		X:      args[1].Float(),
		Y:      args[2].Float(),
	})
	return nil
}

// wheel(delta, {shift, ctrl, alt})
func wheel(this js.Value, args []js.Value) interface{} {
	if !active() || len(args) < 1 {
		return nil
	}
	var mods crosshair.Mod
	if len(args) > 1 && args[1].Type() == js.TypeObject {
		if args[1].Get("shift").Truthy() {
			mods |= crosshair.ModShift
		}
		if args[1].Get("ctrl").Truthy() {
			mods |= crosshair.ModCtrl
		}
		if args[1].Get("alt").Truthy() {
			mods |= crosshair.ModAlt
		}
	}
	session.Handle(crosshair.Wheel{Delta: args[0].Float(), Mods: mods})
	return nil
}

func key(this js.Value, args []js.Value) interface{} {
	if !active() || len(args) < 1 {
		return nil
	}
	session.Handle(crosshair.Key{Name: args[0].String()})
	return nil
}

func confirm(this js.Value, args []js.Value) interface{} {
	if active() {
		session.Confirm()
	}
	return nil
}

func cancel(this js.Value, args []js.Value) interface{} {
	if active() {
		session.Cancel()
	}
	return nil
}

// --- Query Handlers ---

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.Null()
	}
	id := sc.HitTest(args[0].Float(), args[1].Float())
	if id == "" {
		return js.Null()
	}
	return js.ValueOf(id)
}

func getState(this js.Value, args []js.Value) interface{} {
	if session == nil {
		return js.Null()
	}
	return toJSON(map[string]interface{}{
		"sessionId": session.ID(),
		"phase":     session.Phase().String(),
		"valid":     session.Valid(),
		"state":     session.State(),
	})
}

func getScene(this js.Value, args []js.Value) interface{} {
	return toJSON(sc.Snapshot())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	ids := sc.Selection()
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return js.ValueOf(out)
}

func getPresets(this js.Value, args []js.Value) interface{} {
	return toJSON(presets.Names())
}

// collect(stateJSON, types) resolves objects against an arbitrary state.
func collectObjects(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing state JSON")
	}
	var st crosshair.State
	if err := json.Unmarshal([]byte(args[0].String()), &st); err != nil {
		return fail(err.Error())
	}
	types := []scene.ObjectType{scene.TypeToken}
	if len(args) > 1 && args[1].Type() == js.TypeObject {
		types = types[:0]
		for i := 0; i < args[1].Length(); i++ {
			types = append(types, scene.ObjectType(args[1].Index(i).String()))
		}
	}
	res := collect.CollectTypes(sc, st, types, nil)
	out := make(map[scene.ObjectType][]scene.Object, res.Len())
	for _, typ := range res.Keys() {
		out[typ], _ = res.Get(typ)
	}
	return toJSON(out)
}
