/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package cacheapi exposes an LRU cache of byte values over REST API and provides a client for it.
package cacheapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/go-lrucache/httpserver/middleware"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/lrucache"
	"github.com/acronis/go-lrucache/restapi"
)

// Service identity used in URLs and error responses.
const (
	ServiceNameInURL = "lrucache"
	ErrorDomain      = "LRUCache"
	APIVersion       = 1
)

// TTLNever is the value of the "ttl" query parameter for entries that never expire.
const TTLNever = "never"

// Error codes.
const (
	ErrCodeInvalidTTL = "invalidTTL"
	ErrCodeInvalidKey = "invalidKey"
	ErrCodeNotFound   = restapi.ErrCodeNotFound
)

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Puts        uint64  `json:"puts"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
	Requests    uint64  `json:"requests"`
	HitRatio    float64 `json:"hitRatio"`
	Size        int     `json:"size"`
	Capacity    int     `json:"capacity"`
}

// KeysResponse is the body of GET /keys. Keys are ordered from the most to the least recently used.
type KeysResponse struct {
	Keys []string `json:"keys"`
}

// CleanupResponse is the body of POST /cleanup.
type CleanupResponse struct {
	Removed int `json:"removed"`
}

// HandlerOpts represents options for Handler.
type HandlerOpts struct {
	// MaxValueSize limits the size of a stored value. Zero means no limit.
	MaxValueSize uint64

	// Logger is used when the request context carries no logger.
	Logger log.FieldLogger
}

// Handler serves REST API over the cache.
type Handler struct {
	cache        *lrucache.LRUCache[string, []byte]
	maxValueSize uint64
	logger       log.FieldLogger
}

// NewHandler creates a new Handler for the given cache.
func NewHandler(cache *lrucache.LRUCache[string, []byte], opts HandlerOpts) *Handler {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Handler{cache: cache, maxValueSize: opts.MaxValueSize, logger: opts.Logger}
}

// Routes registers API routes in the router. It's supposed to be used as httpserver.APIRoute.
func (h *Handler) Routes(router chi.Router) {
	router.Put("/entries/{key}", h.putEntry)
	router.Get("/entries/{key}", h.getEntry)
	router.Delete("/entries/{key}", h.deleteEntry)
	router.Delete("/entries", h.clear)
	router.Get("/keys", h.keys)
	router.Get("/stats", h.stats)
	router.Post("/cleanup", h.cleanup)
}

func (h *Handler) putEntry(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	key, ok := h.keyParam(rw, r, logger)
	if !ok {
		return
	}
	ttl, useDefault, err := ParseTTL(r.URL.Query().Get("ttl"))
	if err != nil {
		restapi.RespondError(rw, http.StatusBadRequest, restapi.NewError(ErrorDomain, ErrCodeInvalidTTL, err.Error()), logger)
		return
	}
	value, err := restapi.ReadRequestBody(rw, r, h.maxValueSize)
	if err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrorDomain, err, logger)
		return
	}
	if useDefault {
		err = h.cache.Put(key, value)
	} else {
		err = h.cache.PutWithTTL(key, value, ttl)
	}
	if err != nil {
		if errors.Is(err, lrucache.ErrInvalidTTL) {
			restapi.RespondError(rw, http.StatusBadRequest, restapi.NewError(ErrorDomain, ErrCodeInvalidTTL, err.Error()), logger)
			return
		}
		restapi.RespondMalformedRequestOrInternalError(rw, ErrorDomain, err, logger)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getEntry(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	key, ok := h.keyParam(rw, r, logger)
	if !ok {
		return
	}
	value, found := h.cache.Get(key)
	if !found {
		respondNotFound(rw, key, logger)
		return
	}
	rw.Header().Set("Content-Type", "application/octet-stream")
	rw.WriteHeader(http.StatusOK)
	if _, err := rw.Write(value); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

func (h *Handler) deleteEntry(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	key, ok := h.keyParam(rw, r, logger)
	if !ok {
		return
	}
	if !h.cache.Delete(key) {
		respondNotFound(rw, key, logger)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clear(rw http.ResponseWriter, _ *http.Request) {
	h.cache.Clear()
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) keys(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, KeysResponse{Keys: h.cache.Keys()}, h.loggerFromRequest(r))
}

func (h *Handler) stats(rw http.ResponseWriter, r *http.Request) {
	stats, size := h.cache.StatsWithLen()
	restapi.RespondJSON(rw, NewStatsResponse(stats, size, h.cache.Capacity()), h.loggerFromRequest(r))
}

func (h *Handler) cleanup(rw http.ResponseWriter, r *http.Request) {
	removed := h.cache.CleanupExpired()
	logger := h.loggerFromRequest(r)
	logger.Info("expired entries removed", log.Int("removed", removed))
	restapi.RespondJSON(rw, CleanupResponse{Removed: removed}, logger)
}

// NewStatsResponse builds the body of GET /stats.
func NewStatsResponse(stats lrucache.Stats, size, capacity int) StatsResponse {
	return StatsResponse{
		Hits:        stats.Hits,
		Misses:      stats.Misses,
		Puts:        stats.Puts,
		Evictions:   stats.Evictions,
		Expirations: stats.Expirations,
		Requests:    stats.Requests(),
		HitRatio:    stats.HitRatio(),
		Size:        size,
		Capacity:    capacity,
	}
}

// ParseTTL parses the "ttl" query parameter.
// An empty value means the cache's default TTL, TTLNever means lrucache.NoExpiration.
func ParseTTL(s string) (ttl time.Duration, useDefault bool, err error) {
	switch s {
	case "":
		return 0, true, nil
	case TTLNever:
		return lrucache.NoExpiration, false, nil
	}
	ttl, err = time.ParseDuration(s)
	if err != nil || ttl <= 0 {
		return 0, false, fmt.Errorf("invalid ttl %q, should be a positive duration or %q", s, TTLNever)
	}
	return ttl, false, nil
}

// FormatTTL is the inverse of ParseTTL.
func FormatTTL(ttl time.Duration, useDefault bool) string {
	switch {
	case useDefault:
		return ""
	case ttl == lrucache.NoExpiration:
		return TTLNever
	}
	return ttl.String()
}

func (h *Handler) keyParam(rw http.ResponseWriter, r *http.Request, logger log.FieldLogger) (string, bool) {
	key := chi.URLParam(r, "key")
	// chi matches against RawPath when it's set, so the parameter is still escaped in this case.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			restapi.RespondError(rw, http.StatusBadRequest,
				restapi.NewError(ErrorDomain, ErrCodeInvalidKey, "Key is not properly escaped."), logger)
			return "", false
		}
		key = unescaped
	}
	if key == "" {
		restapi.RespondError(rw, http.StatusBadRequest,
			restapi.NewError(ErrorDomain, ErrCodeInvalidKey, "Key must not be empty."), logger)
		return "", false
	}
	return key, true
}

func respondNotFound(rw http.ResponseWriter, key string, logger log.FieldLogger) {
	apiErr := restapi.NewError(ErrorDomain, ErrCodeNotFound, "Entry is not found.").AddContext("key", key)
	restapi.RespondError(rw, http.StatusNotFound, apiErr, logger)
}

func (h *Handler) loggerFromRequest(r *http.Request) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return h.logger
}
