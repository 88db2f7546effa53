package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const (
	// HeaderOwnerID selects whose records a request reads and writes.
	HeaderOwnerID = "X-Owner-ID"

	maxBodyBytes = 1 << 20
	maxOwnerLen  = 128
)

// ownerFrom reads the owner header, falling back to def.
func ownerFrom(r *http.Request, def string) (string, error) {
	owner := sanitizeInput(r.Header.Get(HeaderOwnerID))
	if owner == "" {
		owner = def
	}
	if owner == "" {
		return "", fmt.Errorf("%w: missing %s header", errBadRequest, HeaderOwnerID)
	}
	if len(owner) > maxOwnerLen {
		return "", fmt.Errorf("%w: owner id too long", errBadRequest)
	}
	return owner, nil
}

// monthValue parses a month from a path value or query parameter. Empty
// gives def.
func monthValue(raw string, def core.Month) (core.Month, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "current" {
		return def, nil
	}
	return core.ParseMonth(raw)
}

// intQuery reads an integer query parameter bounded to [min, max].
func intQuery(r *http.Request, name string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("%w: %s must be an integer between %d and %d", errBadRequest, name, min, max)
	}
	return n, nil
}

// entityParam validates the {entity} path segment.
func entityParam(r *http.Request) (core.Entity, error) {
	return core.ParseEntity(r.PathValue("entity"))
}

// decodeRecord reads a JSON record of entity from the body. Unknown fields
// are rejected so typos do not silently drop data.
func decodeRecord(w http.ResponseWriter, r *http.Request, entity core.Entity) (core.Record, error) {
	rec := core.NewRecord(entity)
	if rec == nil {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownEntity, entity)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(rec); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty body", errBadRequest)
		}
		return nil, fmt.Errorf("%w: decode %s: %v", errBadRequest, entity, err)
	}
	return rec, nil
}

// requireID rejects a blank {id} path segment.
func requireID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", store.ErrMissingID
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
