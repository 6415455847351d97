// Package shortlink owns short code generation, resolution and click
// accounting for recipe and article links.
package shortlink

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zapcooking/backend/internal/config"
	"github.com/zapcooking/backend/internal/kv"
	"github.com/zapcooking/backend/internal/models"
)

const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	codeLength   = 6
	maxAttempts  = 5

	linkKeyPrefix = "link:"
)

var (
	ErrNotFound     = errors.New("short code not found")
	ErrSlugTaken    = errors.New("slug already taken")
	ErrSlugReserved = errors.New("slug is reserved")
	ErrInvalidSlug  = errors.New("invalid slug")
	ErrInvalidInput = errors.New("invalid naddr or url")
	ErrExhausted    = errors.New("could not generate a unique code")
)

var reservedSlugs = map[string]struct{}{
	"api":      {},
	"admin":    {},
	"login":    {},
	"logout":   {},
	"s":        {},
	"stats":    {},
	"settings": {},
	"about":    {},
	"recipe":   {},
	"recipes":  {},
	"article":  {},
	"articles": {},
	"user":     {},
	"feed":     {},
	"search":   {},
	"create":   {},
	"help":     {},
	"terms":    {},
	"privacy":  {},
}

var (
	slugRe  = regexp.MustCompile(`^[a-z0-9-]{4,12}$`)
	naddrRe = regexp.MustCompile(`^naddr1[02-9ac-hj-np-z]+$`)
)

type Service struct {
	config *config.ServerConfig
	store  kv.Store
	logger *zap.SugaredLogger
}

func NewService(config *config.ServerConfig, store kv.Store, logger *zap.SugaredLogger) *Service {
	return &Service{
		config: config,
		store:  store,
		logger: logger,
	}
}

func linkKey(code string) string {
	return linkKeyPrefix + strings.ToLower(code)
}

// GenerateCode returns a random lowercase alphanumeric code.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("non-positive length")
	}
	ret := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		ret[i] = codeAlphabet[num.Int64()]
	}

	return string(ret), nil
}

// extractNaddr takes either a bare naddr or a zap.cooking recipe/article
// URL and returns the naddr component.
func extractNaddr(input string) (string, error) {
	input = strings.TrimSpace(input)
	if naddrRe.MatchString(input) {
		return input, nil
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return "", ErrInvalidInput
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	last := parts[len(parts)-1]
	if !naddrRe.MatchString(last) {
		return "", ErrInvalidInput
	}

	return last, nil
}

func normalizeType(t string) (models.LinkType, error) {
	switch t {
	case "", string(models.LinkTypeRecipe):
		return models.LinkTypeRecipe, nil
	case string(models.LinkTypeArticle):
		return models.LinkTypeArticle, nil
	default:
		return "", ErrInvalidInput
	}
}

func validateSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugRe.MatchString(slug) {
		return "", ErrInvalidSlug
	}
	if _, ok := reservedSlugs[slug]; ok {
		return "", ErrSlugReserved
	}

	return slug, nil
}

func (s *Service) Shorten(ctx context.Context, userID string, req models.ShortenReq) (*models.ShortenRes, error) {
	input := req.Naddr
	if input == "" {
		input = req.URL
	}
	naddr, err := extractNaddr(input)
	if err != nil {
		return nil, err
	}

	linkType, err := normalizeType(req.Type)
	if err != nil {
		return nil, err
	}

	record := models.ShortLink{
		Naddr:     naddr,
		Type:      linkType,
		CreatedAt: time.Now().UnixMilli(),
		CreatedBy: userID,
	}

	var code string
	if req.Slug != "" {
		code, err = s.putCustom(ctx, req.Slug, record)
	} else {
		code, err = s.putGenerated(ctx, record)
	}
	if err != nil {
		return nil, err
	}

	shortURL, err := url.JoinPath(s.config.BaseURL, "s", code)
	if err != nil {
		err = fmt.Errorf("short URL cannot be joined: %w", err)
		s.logger.Error(err)
		return nil, err
	}

	return &models.ShortenRes{ShortURL: shortURL, Code: code}, nil
}

func (s *Service) putCustom(ctx context.Context, slug string, record models.ShortLink) (string, error) {
	code, err := validateSlug(slug)
	if err != nil {
		return "", err
	}

	record.ShortCode = code
	value, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("error encoding link record: %w", err)
	}

	inserted, err := s.store.SetIfAbsent(ctx, linkKey(code), value, 0)
	if err != nil {
		return "", fmt.Errorf("error storing link: %w", err)
	}
	if !inserted {
		return "", ErrSlugTaken
	}

	return code, nil
}

func (s *Service) putGenerated(ctx context.Context, record models.ShortLink) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := GenerateCode(codeLength)
		if err != nil {
			return "", fmt.Errorf("random code generator error: %w", err)
		}

		record.ShortCode = code
		value, err := json.Marshal(record)
		if err != nil {
			return "", fmt.Errorf("error encoding link record: %w", err)
		}

		inserted, err := s.store.SetIfAbsent(ctx, linkKey(code), value, 0)
		if err != nil {
			return "", fmt.Errorf("error storing link: %w", err)
		}
		if inserted {
			return code, nil
		}
		s.logger.Infow("short code collision, retrying", "code", code, "attempt", attempt+1)
	}

	return "", ErrExhausted
}

// Resolve returns the redirect target for a code and bumps its click
// counter. The increment happens inside the store's atomic update.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	var record models.ShortLink

	err := s.store.Update(ctx, linkKey(code), func(old []byte) ([]byte, error) {
		if err := json.Unmarshal(old, &record); err != nil {
			return nil, fmt.Errorf("error decoding link record: %w", err)
		}
		record.Clicks++
		return json.Marshal(record)
	})
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", ErrNotFound
		}
		s.logger.Errorw("error resolving short code", "code", code, "err", err)
		return "", err
	}

	target, err := url.JoinPath(s.config.BaseURL, string(record.Type), record.Naddr)
	if err != nil {
		return "", fmt.Errorf("redirect target cannot be joined: %w", err)
	}

	return target, nil
}

func (s *Service) Stats(ctx context.Context, code string) (*models.ShortLink, error) {
	value, err := s.store.Get(ctx, linkKey(code))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading link record: %w", err)
	}

	var record models.ShortLink
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, fmt.Errorf("error decoding link record: %w", err)
	}

	return &record, nil
}

// ServiceStats aggregates link and creator counts for the internal
// stats endpoint.
func (s *Service) ServiceStats(ctx context.Context) (*models.Stats, error) {
	values, err := s.store.List(ctx, linkKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("error listing links: %w", err)
	}

	users := make(map[string]struct{})
	for _, value := range values {
		var record models.ShortLink
		if err := json.Unmarshal(value, &record); err != nil {
			continue
		}
		if record.CreatedBy != "" {
			users[record.CreatedBy] = struct{}{}
		}
	}

	return &models.Stats{Links: len(values), Users: len(users)}, nil
}
