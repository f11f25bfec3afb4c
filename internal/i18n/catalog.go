// Package i18n resolves the localized texts returned in error responses.
package i18n

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"

	applog "chat-conversations/internal/log"
)

type Key string

const (
	KeyForbidden  Key = "forbidden"
	KeyError      Key = "error"
	KeyBadRequest Key = "bad_request"
)

var defaults = map[language.Tag]map[Key]string{
	language.BrazilianPortuguese: {
		KeyForbidden:  "Acesso negado",
		KeyError:      "Ocorreu um erro ao processar sua solicitação",
		KeyBadRequest: "Requisição inválida",
	},
	language.English: {
		KeyForbidden:  "Access denied",
		KeyError:      "An error occurred while processing your request",
		KeyBadRequest: "Invalid request",
	},
}

// ParamLister loads parameters below a path, keyed by relative name.
type ParamLister interface {
	GetParametersByPath(ctx context.Context, path string) (map[string]string, error)
}

// Catalog picks a text per Accept-Language header. Overrides stored under
// <prefix>/messages/<lang>/<key> replace the built-in texts; they are loaded
// once, on first use.
type Catalog struct {
	params  ParamLister
	path    string
	tags    []language.Tag
	matcher language.Matcher

	mu     sync.RWMutex
	loaded bool
	texts  map[language.Tag]map[Key]string
}

// NewCatalog builds a Catalog whose fallback language is defaultLang. params
// may be nil, in which case only built-in texts are used.
func NewCatalog(defaultLang string, params ParamLister, paramPrefix string) (*Catalog, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("i18n: parse default language %q: %w", defaultLang, err)
	}
	if _, ok := defaults[def]; !ok {
		return nil, fmt.Errorf("i18n: unsupported default language %q", defaultLang)
	}

	// The matcher falls back to the first tag.
	tags := []language.Tag{def}
	for _, t := range []language.Tag{language.BrazilianPortuguese, language.English} {
		if t != def {
			tags = append(tags, t)
		}
	}

	texts := make(map[language.Tag]map[Key]string, len(defaults))
	for tag, m := range defaults {
		texts[tag] = make(map[Key]string, len(m))
		for k, v := range m {
			texts[tag][k] = v
		}
	}

	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if params != nil && paramPrefix == "" {
		return nil, errors.New("i18n: parameter prefix must not be empty")
	}

	return &Catalog{
		params:  params,
		path:    paramPrefix + "/messages",
		tags:    tags,
		matcher: language.NewMatcher(tags),
		loaded:  params == nil,
		texts:   texts,
	}, nil
}

// Text returns the text for key in the best language for acceptLanguage.
func (c *Catalog) Text(ctx context.Context, acceptLanguage string, key Key) string {
	c.ensureLoaded(ctx)

	tag := c.Match(acceptLanguage)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.texts[tag][key]; ok {
		return s
	}
	return c.texts[c.tags[0]][key]
}

// Match returns the supported language closest to acceptLanguage.
func (c *Catalog) Match(acceptLanguage string) language.Tag {
	wanted, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(wanted) == 0 {
		return c.tags[0]
	}
	_, idx, conf := c.matcher.Match(wanted...)
	if conf == language.No {
		return c.tags[0]
	}
	return c.tags[idx]
}

func (c *Catalog) ensureLoaded(ctx context.Context) {
	c.mu.RLock()
	if c.loaded {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}

	overrides, err := c.params.GetParametersByPath(ctx, c.path)
	if err != nil {
		// Built-in texts stay in place; the next request tries again.
		logger := applog.Ctx(ctx)
		logger.Warn().Err(err).Msg("failed to load localized text overrides")
		return
	}
	for name, value := range overrides {
		lang, key, ok := strings.Cut(name, "/")
		if !ok {
			continue
		}
		tag, err := language.Parse(lang)
		if err != nil {
			continue
		}
		if _, supported := c.texts[tag]; !supported {
			continue
		}
		c.texts[tag][Key(key)] = value
	}
	c.loaded = true
}
