// Package nip05 serves DNS-based Nostr identity: the
// .well-known/nostr.json document and the claims behind it.
package nip05

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zapcooking/backend/internal/kv"
	"github.com/zapcooking/backend/internal/models"
)

const claimKeyPrefix = "nip05:"

var (
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidPubkey = errors.New("invalid pubkey")
	ErrNameReserved  = errors.New("name is reserved")
	ErrNameTaken     = errors.New("name already claimed")
	ErrNotFound      = errors.New("name not found")
)

var reservedNames = map[string]struct{}{
	"_":       {},
	"admin":   {},
	"root":    {},
	"zap":     {},
	"cook":    {},
	"pantry":  {},
	"info":    {},
	"support": {},
	"help":    {},
	"www":     {},
}

var (
	nameRe   = regexp.MustCompile(`^[a-z0-9_-]{3,20}$`)
	pubkeyRe = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

var defaultRelays = []string{
	"wss://relay.damus.io",
	"wss://relay.nostr.band",
	"wss://nos.lol",
}

type claim struct {
	Name   string `json:"name"`
	Pubkey string `json:"pubkey"`
}

type Service struct {
	store      kv.Store
	rootPubkey string
}

func NewService(store kv.Store, rootPubkey string) *Service {
	return &Service{
		store:      store,
		rootPubkey: rootPubkey,
	}
}

func claimKey(name string) string {
	return claimKeyPrefix + name
}

// Claim registers a name for a pubkey. Re-claiming your own name is a
// no-op; claiming someone else's name is a conflict.
func (s *Service) Claim(ctx context.Context, name string, pubkey string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	if _, ok := reservedNames[name]; ok {
		return ErrNameReserved
	}
	pubkey = strings.ToLower(strings.TrimSpace(pubkey))
	if !pubkeyRe.MatchString(pubkey) {
		return ErrInvalidPubkey
	}

	value, err := json.Marshal(claim{Name: name, Pubkey: pubkey})
	if err != nil {
		return fmt.Errorf("error encoding claim: %w", err)
	}

	inserted, err := s.store.SetIfAbsent(ctx, claimKey(name), value, 0)
	if err != nil {
		return fmt.Errorf("error storing claim: %w", err)
	}
	if inserted {
		return nil
	}

	existing, err := s.store.Get(ctx, claimKey(name))
	if err != nil {
		return fmt.Errorf("error reading claim: %w", err)
	}
	var c claim
	if err := json.Unmarshal(existing, &c); err != nil {
		return fmt.Errorf("error decoding claim: %w", err)
	}
	if c.Pubkey != pubkey {
		return ErrNameTaken
	}

	return nil
}

// NostrJSON assembles the .well-known/nostr.json document. An empty
// name returns every claim; otherwise only the requested mapping.
func (s *Service) NostrJSON(ctx context.Context, name string) (*models.NostrJSON, error) {
	doc := &models.NostrJSON{
		Names:  make(map[string]string),
		Relays: make(map[string][]string),
	}
	if s.rootPubkey != "" {
		doc.Names["_"] = s.rootPubkey
		doc.Relays[s.rootPubkey] = defaultRelays
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		values, err := s.store.List(ctx, claimKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("error listing claims: %w", err)
		}
		for _, value := range values {
			var c claim
			if err := json.Unmarshal(value, &c); err != nil {
				continue
			}
			doc.Names[c.Name] = c.Pubkey
			doc.Relays[c.Pubkey] = defaultRelays
		}
		return doc, nil
	}

	if name == "_" {
		return doc, nil
	}

	value, err := s.store.Get(ctx, claimKey(name))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading claim: %w", err)
	}
	var c claim
	if err := json.Unmarshal(value, &c); err != nil {
		return nil, fmt.Errorf("error decoding claim: %w", err)
	}

	doc.Names = map[string]string{c.Name: c.Pubkey}
	doc.Relays = map[string][]string{c.Pubkey: defaultRelays}
	return doc, nil
}
