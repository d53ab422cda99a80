// Package names resolves type and character ids to display names, backed
// by the store's name caches with ESI as the source of truth on a miss.
package names

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/corpledger-dev/corpledger/internal/store"
)

// Lookup fetches names from ESI. *esi.Client satisfies it.
type Lookup interface {
	TypeName(ctx context.Context, typeID int64) (string, error)
	CharacterName(ctx context.Context, characterID int64) (string, error)
}

// Resolver answers name queries from the cache first, falling back to an
// ESI lookup with cache write-through. A failed lookup degrades to a
// "type:123" / "char:456" placeholder instead of an error, and the
// placeholder is not cached, so a later run can still resolve the real
// name. With a nil Lookup the resolver is cache-only, which lets report
// commands run against a copied database without ESI credentials.
type Resolver struct {
	store *store.Store
	src   Lookup
	log   zerolog.Logger
}

func New(st *store.Store, src Lookup, log zerolog.Logger) *Resolver {
	return &Resolver{store: st, src: src, log: log}
}

// Type resolves an item type id to its name.
func (r *Resolver) Type(ctx context.Context, typeID int64) string {
	placeholder := fmt.Sprintf("type:%d", typeID)

	name, ok, err := r.store.TypeName(ctx, typeID)
	if err != nil {
		r.log.Warn().Err(err).Int64("type_id", typeID).Msg("type name cache read failed")
	} else if ok {
		return name
	}
	if r.src == nil {
		return placeholder
	}

	name, err = r.src.TypeName(ctx, typeID)
	if err != nil || name == "" {
		if err != nil {
			r.log.Warn().Err(err).Int64("type_id", typeID).Msg("type name lookup failed")
		}
		return placeholder
	}
	if err := r.store.SaveTypeName(ctx, typeID, name); err != nil {
		r.log.Warn().Err(err).Int64("type_id", typeID).Msg("caching type name failed")
	}
	return name
}

// Character resolves a character id to its name. Id zero means the record
// had no character attached.
func (r *Resolver) Character(ctx context.Context, characterID int64) string {
	if characterID == 0 {
		return "Unknown"
	}
	placeholder := fmt.Sprintf("char:%d", characterID)

	name, ok, err := r.store.CharacterName(ctx, characterID)
	if err != nil {
		r.log.Warn().Err(err).Int64("character_id", characterID).Msg("character name cache read failed")
	} else if ok {
		return name
	}
	if r.src == nil {
		return placeholder
	}

	name, err = r.src.CharacterName(ctx, characterID)
	if err != nil || name == "" {
		if err != nil {
			r.log.Warn().Err(err).Int64("character_id", characterID).Msg("character name lookup failed")
		}
		return placeholder
	}
	if err := r.store.SaveCharacterName(ctx, characterID, name); err != nil {
		r.log.Warn().Err(err).Int64("character_id", characterID).Msg("caching character name failed")
	}
	return name
}
