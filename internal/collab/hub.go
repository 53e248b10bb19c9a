// Package collab serves live crosshair sessions over websockets. Clients
// join a scene room; each client drives its own session and receives the
// session's state, rejections and final result.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/crosshair/internal/collect"
	"github.com/inamate/crosshair/internal/crosshair"
	"github.com/inamate/crosshair/internal/placement"
	"github.com/inamate/crosshair/internal/preset"
	"github.com/inamate/crosshair/internal/scene"
	"github.com/inamate/crosshair/internal/typeid"
)

var ErrSessionActive = errors.New("a crosshair is already active")

// SceneLoader fetches a scene document by id.
type SceneLoader func(ctx context.Context, sceneID string) (*scene.Document, error)

// SceneSaver persists a scene document and returns its new version.
type SceneSaver func(ctx context.Context, doc *scene.Document) (int, error)

type Room struct {
	sceneID string
	scene   *scene.Scene
	clients map[string]*Client // clientID -> client
	dirty   bool
}

func NewRoom(sc *scene.Scene) *Room {
	return &Room{
		sceneID: sc.ID(),
		scene:   sc,
		clients: make(map[string]*Client),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sceneID -> room
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	load    SceneLoader
	save    SceneSaver
	presets *preset.Registry
	logger  *slog.Logger
}

func NewHub(load SceneLoader, save SceneSaver, presets *preset.Registry, logger *slog.Logger) *Hub {
	if presets == nil {
		presets = preset.NewRegistry(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		load:       load,
		save:       save,
		presets:    presets,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.quit:
			return
		}
	}
}

// Stop cancels every running session and saves scenes that changed.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)

		h.mu.Lock()
		rooms := make([]*Room, 0, len(h.rooms))
		for _, room := range h.rooms {
			rooms = append(rooms, room)
		}
		h.rooms = make(map[string]*Room)
		h.mu.Unlock()

		for _, room := range rooms {
			for _, c := range room.clients {
				c.close()
			}
			h.saveRoom(room)
		}
	})
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
		client.close()
	}
}

// Join returns the live scene for sceneID, loading it into a room on first
// use. Callers that fail to register a client afterwards should Evict.
func (h *Hub) Join(ctx context.Context, sceneID string) (*scene.Scene, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[sceneID]; ok {
		return room.scene, nil
	}
	doc, err := h.load(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	sc := scene.New(doc)
	h.rooms[sceneID] = NewRoom(sc)
	return sc, nil
}

// Scene returns the live scene when sceneID has a room, and otherwise a
// fresh copy from the store that is not cached.
func (h *Hub) Scene(ctx context.Context, sceneID string) (*scene.Scene, error) {
	h.mu.RLock()
	room, ok := h.rooms[sceneID]
	h.mu.RUnlock()
	if ok {
		return room.scene, nil
	}
	doc, err := h.load(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	return scene.New(doc), nil
}

// Evict drops a cached scene that has no connected clients, so the next
// join reloads it from the store.
func (h *Hub) Evict(sceneID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[sceneID]; ok && len(room.clients) == 0 {
		delete(h.rooms, sceneID)
	}
}

// Replace installs a document written outside the hub. An open room switches
// to it and drops its unsaved moves; sessions already running keep the grid
// and walls they started with.
func (h *Hub) Replace(doc *scene.Document) {
	h.mu.Lock()
	room, ok := h.rooms[doc.ID]
	if ok && len(room.clients) == 0 {
		delete(h.rooms, doc.ID)
		ok = false
	}
	if ok {
		room.scene.Replace(doc)
		room.dirty = false
	}
	h.mu.Unlock()

	if ok {
		h.broadcastToRoom(doc.ID, newMessage(TypeSceneReplaced, SceneReplacedPayload{Version: doc.Version}), "")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SceneID]
	if !ok {
		room = NewRoom(client.scene)
		h.rooms[client.SceneID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID: client.ClientID,
		SceneID:  client.SceneID,
		Presets:  h.presets.Names(),
	}))

	h.logger.Info("client joined", "client", client.ClientID, "scene", client.SceneID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SceneID]
	if !ok {
		h.mu.Unlock()
		client.close()
		return
	}

	delete(room.clients, client.ClientID)
	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.SceneID)
	}
	h.mu.Unlock()

	client.close()
	if empty {
		h.saveRoom(room)
	}

	h.logger.Info("client left", "client", client.ClientID, "scene", client.SceneID)
}

// saveRoom writes a dirty room back unless the store moved past the version
// the room was loaded from.
func (h *Hub) saveRoom(room *Room) {
	if !room.dirty || h.save == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc := room.scene.Snapshot()
	if stored, err := h.load(ctx, room.sceneID); err == nil && stored.Version != doc.Version {
		h.logger.Warn("scene changed in store, dropping live edits",
			"scene", room.sceneID, "live", doc.Version, "stored", stored.Version)
		room.dirty = false
		return
	}

	version, err := h.save(ctx, doc)
	if err != nil {
		h.logger.Error("save scene", "scene", room.sceneID, "error", err)
		return
	}
	room.scene.SetVersion(version)
	room.dirty = false
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeShow:
		h.handleShow(sender, msg)
	case TypeInput:
		h.handleInput(sender, msg)
	case TypeConfirm:
		if s := sender.activeSession(); s != nil {
			s.Confirm()
		}
	case TypeCancel:
		if s := sender.activeSession(); s != nil {
			s.Cancel()
		}
	case TypeSelectionSet:
		h.handleSelection(sender, msg)
	case TypeObjectMove:
		h.handleObjectMove(sender, msg)
	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		sender.SendError("unknown message type " + msg.Type)
	}
}

func (h *Hub) handleShow(sender *Client, msg *Message) {
	if sender.activeSession() != nil {
		sender.SendError(ErrSessionActive.Error())
		return
	}

	var p ShowPayload
	if err := decode(msg.Payload, &p); err != nil {
		sender.SendError("invalid show payload")
		return
	}
	cfg, err := h.presets.Resolve(p.Preset, p.Config)
	if err != nil {
		sender.SendError(err.Error())
		return
	}

	sc := sender.scene
	id := typeid.NewSessionID()
	var started bool

	opts := crosshair.Options{
		ID:          id,
		Grid:        sc.Grid(),
		Walls:       sc.Walls(),
		Bounds:      sc.Bounds(),
		Constraints: []placement.Constraint{placement.WithinBounds{}},
		Logger:      h.logger.With("client", sender.ClientID, "scene", sender.SceneID),
		Renderer: crosshair.RendererFunc(func(st crosshair.State) {
			// The initial render is reported after Show returns, with its validity.
			if started {
				sender.Send(newMessage(TypeState, StatePayload{SessionID: id, State: st, Valid: true}))
			}
		}),
		Callbacks: crosshair.Callbacks{}.
			On(crosshair.HookInvalidPlacement, func(st crosshair.State, reason error) {
				sender.Send(newMessage(TypeInvalid, InvalidPayload{SessionID: id, State: st, Reason: reason.Error()}))
			}).
			On(crosshair.HookConfirm, func(st crosshair.State, _ error) {
				res := collect.CollectTypes(sc, st, p.Collect, nil)
				out := ResolvedPayload{SessionID: id, State: st, Order: res.Keys()}
				if res.Len() > 0 {
					out.Collected = make(map[scene.ObjectType][]scene.Object, res.Len())
					for _, typ := range res.Keys() {
						out.Collected[typ], _ = res.Get(typ)
					}
				}
				sender.Send(newMessage(TypeResolved, out))
			}).
			On(crosshair.HookCancel, func(crosshair.State, error) {
				sender.Send(newMessage(TypeCancelled, CancelledPayload{SessionID: id}))
			}),
	}

	var sess *crosshair.Session
	if p.TargetID != "" {
		var target *scene.Placeable
		target, err = sc.Placeable(p.TargetID)
		if err != nil {
			sender.SendError(err.Error())
			return
		}
		sess, err = crosshair.ShowTarget(target, cfg, opts)
	} else {
		sess, err = crosshair.Show(cfg, opts)
	}
	if err != nil {
		sender.SendError(err.Error())
		return
	}

	started = true
	sender.setSession(sess)
	sender.Send(newMessage(TypeState, StatePayload{SessionID: id, State: sess.State(), Valid: sess.Valid()}))
}

func (h *Hub) handleInput(sender *Client, msg *Message) {
	s := sender.activeSession()
	if s == nil {
		return
	}
	var p InputPayload
	if err := decode(msg.Payload, &p); err != nil {
		sender.SendError("invalid input payload")
		return
	}
	ev, err := p.ToEvent()
	if err != nil {
		sender.SendError(err.Error())
		return
	}
	s.Handle(ev)
}

func (h *Hub) handleSelection(sender *Client, msg *Message) {
	var p SelectionPayload
	if err := decode(msg.Payload, &p); err != nil {
		sender.SendError("invalid selection payload")
		return
	}
	sender.scene.SetSelection(p.IDs)
}

func (h *Hub) handleObjectMove(sender *Client, msg *Message) {
	var p ObjectMovePayload
	if err := decode(msg.Payload, &p); err != nil {
		sender.SendError("invalid move payload")
		return
	}
	if err := sender.scene.MoveObject(p.ID, p.X, p.Y); err != nil {
		sender.SendError(err.Error())
		return
	}

	h.mu.Lock()
	if room, ok := h.rooms[sender.SceneID]; ok {
		room.dirty = true
	}
	h.mu.Unlock()

	h.broadcastToRoom(sender.SceneID, newMessage(TypeObjectMoved, p), "")
}

func (h *Hub) broadcastToRoom(sceneID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sceneID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func decode(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
