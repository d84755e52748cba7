// internal/bot/router.go
package bot

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
)

// ErrNoHandler is returned by Dispatch when nothing is registered for a name.
var ErrNoHandler = errors.New("no handler registered")

// Request is what a handler receives: the inbound event plus, for prefix
// routes, the part of the identifier after the prefix.
type Request struct {
	messaging.Event
	Suffix string
}

// Arg returns the i-th positional argument or "".
func (r *Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// HandlerFunc handles one routed request.
type HandlerFunc func(ctx context.Context, req *Request) error

// CommandInfo describes a registered command for help texts and the
// transport's command menu.
type CommandInfo struct {
	Name        string
	Description string
}

type prefixRoute struct {
	prefix  string
	handler HandlerFunc
}

// Router maps command names or callback identifiers to handlers. Exact names
// win over prefixes; among prefixes the longest match wins.
type Router struct {
	handlers     map[string]HandlerFunc
	descriptions map[string]string
	prefixes     []prefixRoute
	onMatch      func(ctx context.Context, req *Request)
	logger       *zap.Logger
	mu           sync.RWMutex
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		handlers:     make(map[string]HandlerFunc),
		descriptions: make(map[string]string),
		logger:       logger.Named("router"),
	}
}

// Register binds name to handler. Names are case-insensitive and may be
// given with a leading slash.
func (r *Router) Register(name, description string, handler HandlerFunc) {
	name = normalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[name] = handler
	if description != "" {
		r.descriptions[name] = description
	}
	r.logger.Debug("Handler registered", zap.String("name", name))
}

// RegisterPrefix binds every identifier starting with prefix to handler.
func (r *Router) RegisterPrefix(prefix string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, handler: handler})
	sort.SliceStable(r.prefixes, func(i, j int) bool {
		return len(r.prefixes[i].prefix) > len(r.prefixes[j].prefix)
	})
	r.logger.Debug("Prefix handler registered", zap.String("prefix", prefix))
}

// OnMatch sets a hook that Dispatch runs before a matched handler.
func (r *Router) OnMatch(fn func(ctx context.Context, req *Request)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMatch = fn
}

// Lookup resolves name to a handler and the suffix after a matched prefix.
func (r *Router) Lookup(name string) (HandlerFunc, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.handlers[normalizeName(name)]; ok {
		return h, "", true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.handler, strings.TrimPrefix(name, p.prefix), true
		}
	}
	return nil, "", false
}

// Dispatch runs the handler for name. It reports whether a handler was found;
// unknown names return false and ErrNoHandler without side effects.
func (r *Router) Dispatch(ctx context.Context, name string, ev messaging.Event) (bool, error) {
	handler, suffix, ok := r.Lookup(name)
	if !ok {
		return false, ErrNoHandler
	}

	r.mu.RLock()
	onMatch := r.onMatch
	r.mu.RUnlock()

	req := &Request{Event: ev, Suffix: suffix}
	if onMatch != nil {
		onMatch(ctx, req)
	}
	return true, handler(ctx, req)
}

// Commands lists the described commands sorted by name.
func (r *Router) Commands() []CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CommandInfo, 0, len(r.descriptions))
	for name, desc := range r.descriptions {
		out = append(out, CommandInfo{Name: name, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}
