// Package router assembles the versioned API routing table from
// independently developed sub-routers.
package router

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsflow/pkg/logger"
	"whatsflow/pkg/metrics"
)

// Error variables
var (
	ErrMountFailed    = errors.New("router mount failed")
	ErrInvalidPrefix  = errors.New("invalid router prefix")
	ErrNilRouter      = errors.New("nil router")
	ErrAlreadyMounted = errors.New("routers already mounted")
)

// Mountable is a sub-router that owns a set of routes below its prefix.
type Mountable interface {
	Prefix() string
	Register(group *gin.RouterGroup)
}

// Version groups the sub-routers that make up one API version.
type Version struct {
	Name    string
	Routers []Mountable
}

// Composer mounts versions onto an engine. It is used once, before the
// engine starts serving.
type Composer struct {
	engine  *gin.Engine
	log     *zap.Logger
	mounted bool
}

// NewComposer creates a composer for engine.
func NewComposer(engine *gin.Engine, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{engine: engine, log: log}
}

// Mount registers every router of every version under prefix. Success is
// recorded as a router_mounted security event; a failure is recorded once as
// router_mount_failed and returned.
func (c *Composer) Mount(prefix string, versions ...Version) error {
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Name)
	}

	mounted, err := c.mount(prefix, versions)
	if err != nil {
		c.log.Error("API router mounting failed",
			logger.SecurityEventField(logger.SecurityEvent{
				Type: logger.EventRouterMountFailed,
				Extra: map[string]any{
					"prefix":   prefix,
					"versions": names,
					"error":    err.Error(),
				},
			}),
			zap.Error(err),
		)
		metrics.RouterMountsTotal.WithLabelValues("failure").Inc()
		return err
	}

	c.log.Info("API routers mounted",
		logger.SecurityEventField(logger.SecurityEvent{
			Type: logger.EventRouterMounted,
			Extra: map[string]any{
				"prefix":   prefix,
				"versions": names,
				"routers":  mounted,
			},
		}),
	)
	metrics.RouterMountsTotal.WithLabelValues("success").Inc()
	return nil
}

func (c *Composer) mount(prefix string, versions []Version) ([]string, error) {
	if c.mounted {
		return nil, ErrAlreadyMounted
	}
	c.mounted = true

	if err := checkPrefix(prefix, false); err != nil {
		return nil, err
	}

	base := c.engine.Group(prefix)
	var mounted []string
	for _, v := range versions {
		for i, r := range v.Routers {
			if r == nil {
				return nil, fmt.Errorf("%w: version %s router #%d", ErrNilRouter, v.Name, i)
			}
			sub := r.Prefix()
			if err := checkPrefix(sub, true); err != nil {
				return nil, fmt.Errorf("version %s: %w", v.Name, err)
			}
			if err := register(base.Group(sub), r); err != nil {
				return nil, fmt.Errorf("version %s router %q: %w", v.Name, sub, err)
			}
			mounted = append(mounted, path.Join(prefix, sub))
		}
	}
	return mounted, nil
}

// register turns a registration panic (duplicate route, malformed path)
// into an error. A panicking error value stays reachable through errors.Is.
func register(group *gin.RouterGroup, r Mountable) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if e, ok := rec.(error); ok {
			err = fmt.Errorf("%w: %w", ErrMountFailed, e)
			return
		}
		err = fmt.Errorf("%w: %v", ErrMountFailed, rec)
	}()

	r.Register(group)
	return nil
}

func checkPrefix(prefix string, allowEmpty bool) error {
	if prefix == "" {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: empty", ErrInvalidPrefix)
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPrefix, prefix)
	}
	if len(prefix) > 1 && strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("%w: %q must not end with /", ErrInvalidPrefix, prefix)
	}
	return nil
}
