package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar registers a set of routes under a gin group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and mounts them under a versioned API prefix.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	middleware []gin.HandlerFunc
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithAPIVersion overrides the default "v1" version segment.
func WithAPIVersion(version string) RouterOption {
	return func(rt *Router) {
		rt.apiVersion = version
	}
}

// NewRouter wraps a gin engine.
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	rt := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Register queues a registrar; routes are mounted on Setup.
func (rt *Router) Register(registrar RouteRegistrar) *Router {
	rt.registrars = append(rt.registrars, registrar)
	return rt
}

// Use appends middleware that runs for every route mounted by Setup.
func (rt *Router) Use(middleware ...gin.HandlerFunc) *Router {
	rt.middleware = append(rt.middleware, middleware...)
	return rt
}

// Setup mounts every queued registrar under /api/<version>.
func (rt *Router) Setup() {
	api := rt.engine.Group("/api/"+rt.apiVersion, rt.middleware...)
	for _, reg := range rt.registrars {
		reg.RegisterRoutes(api)
	}
}

// DomainGroup declares the routes of one bounded context (leasing, ledger,
// system) without touching the engine until RegisterRoutes runs. That keeps
// route declarations testable and lets middleware apply per domain.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []declaredRoute
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type declaredRoute struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup declares a group mounted at prefix.
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use appends middleware that runs for every route in the group.
func (g *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

func (g *DomainGroup) declare(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, declaredRoute{method: method, path: path, handlers: handlers})
	return g
}

// GET declares a GET route.
func (g *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.declare(http.MethodGet, path, handlers)
}

// POST declares a POST route.
func (g *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.declare(http.MethodPost, path, handlers)
}

// PUT declares a PUT route.
func (g *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.declare(http.MethodPut, path, handlers)
}

// PATCH declares a PATCH route.
func (g *DomainGroup) PATCH(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.declare(http.MethodPatch, path, handlers)
}

// DELETE declares a DELETE route.
func (g *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.declare(http.MethodDelete, path, handlers)
}

// Group declares a nested group under this one.
func (g *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	g.subgroups = append(g.subgroups, sub)
	return sub
}

// RegisterRoutes mounts the declared routes, middleware first.
func (g *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	mounted := rg.Group(g.prefix)
	if len(g.middleware) > 0 {
		mounted.Use(g.middleware...)
	}

	for _, r := range g.routes {
		mounted.Handle(r.method, r.path, r.handlers...)
	}

	for _, sub := range g.subgroups {
		sub.RegisterRoutes(mounted)
	}
}

// Name returns the group name.
func (g *DomainGroup) Name() string { return g.name }

// Prefix returns the group prefix.
func (g *DomainGroup) Prefix() string { return g.prefix }
