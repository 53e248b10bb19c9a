package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixScene   = "scene"
	PrefixObject  = "obj"
	PrefixWall    = "wall"
	PrefixSession = "xhair"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewSceneID() string   { return New(PrefixScene) }
func NewObjectID() string  { return New(PrefixObject) }
func NewWallID() string    { return New(PrefixWall) }
func NewSessionID() string { return New(PrefixSession) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
