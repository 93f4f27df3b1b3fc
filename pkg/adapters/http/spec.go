package http

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var rawSpec []byte

const maxBodySize = 64 << 10

// RawSpec returns the embedded OpenAPI document.
func RawSpec() []byte {
	return append([]byte(nil), rawSpec...)
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

// validateBody checks the JSON body of the matched route against the
// request schema of its operation. It must run after routing.
func (s *Server) validateBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		item := s.doc.Paths.Find(pattern)
		if item == nil {
			next.ServeHTTP(w, r)
			return
		}
		op := item.GetOperation(r.Method)
		if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
			next.ServeHTTP(w, r)
			return
		}
		reqBody := op.RequestBody.Value

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("read request body: %w", err), nil)
			return
		}
		if len(body) > maxBodySize {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", maxBodySize), nil)
			return
		}

		if len(bytes.TrimSpace(body)) == 0 {
			if reqBody.Required {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("request body is required"), nil)
				return
			}
		} else {
			var data any
			if err := json.Unmarshal(body, &data); err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err), nil)
				return
			}
			if media := reqBody.Content.Get("application/json"); media != nil && media.Schema != nil && media.Schema.Value != nil {
				if err := media.Schema.Value.VisitJSON(data); err != nil {
					s.logger.Debug("request rejected by schema", "operation", op.OperationID, "err", err)
					s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), nil)
					return
				}
			}
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}
