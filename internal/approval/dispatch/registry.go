// Package dispatch maps (object_type, action) pairs to the handlers that
// apply an approved request. The handler set is fixed at startup: a Builder
// collects registrations once and produces an immutable Registry.
package dispatch

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"acadmin/internal/approval/models"
	"acadmin/internal/schema"
	dErrors "acadmin/pkg/domain-errors"
	txcontext "acadmin/pkg/platform/tx"
)

var tracer = otel.Tracer("acadmin/approval/dispatch")

// Env is what a handler may touch. Conn is the caller's open transaction;
// handlers must not begin their own.
type Env struct {
	Conn   txcontext.Querier
	Caps   *schema.Capabilities
	Logger *slog.Logger
}

// Log returns the handler logger, defaulting to slog.Default.
func (e Env) Log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Target identifies the object an approved request acts on.
type Target struct {
	ApprovalID int64
	Key        models.ActionKey
	Ref        models.ObjectRef
}

// HandlerFunc applies one approved request. payload is the raw JSON document.
type HandlerFunc func(ctx context.Context, env Env, target Target, payload json.RawMessage) error

// Builder collects handler registrations.
type Builder struct {
	handlers map[models.ActionKey]HandlerFunc
	errs     []error
}

func NewBuilder() *Builder {
	return &Builder{handlers: make(map[models.ActionKey]HandlerFunc)}
}

// Handle registers fn for the pair. Registering a pair twice is reported by Build.
func (b *Builder) Handle(objectType, action string, fn HandlerFunc) {
	key := models.NewActionKey(objectType, action)
	if key.ObjectType == "" || key.Action == "" || fn == nil {
		b.errs = append(b.errs, fmt.Errorf("invalid registration %q", key))
		return
	}
	if _, exists := b.handlers[key]; exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate handler for %s", key))
		return
	}
	b.handlers[key] = fn
}

// Register adapts a handler with a typed payload. A payload that does not
// decode into P never fails the request: a JSON object keeps the fields that
// fit P and drops the rest, and anything else becomes the zero P.
func Register[P any](b *Builder, objectType, action string, fn func(ctx context.Context, env Env, target Target, payload P) error) {
	b.Handle(objectType, action, func(ctx context.Context, env Env, target Target, raw json.RawMessage) error {
		payload, dropped, err := decodePayload[P](raw)
		switch {
		case err != nil:
			env.Log().WarnContext(ctx, "approval payload not decodable, using empty payload",
				"approval_id", target.ApprovalID,
				"action_key", target.Key.String(),
				"error", err,
			)
		case len(dropped) > 0:
			env.Log().WarnContext(ctx, "approval payload fields ignored",
				"approval_id", target.ApprovalID,
				"action_key", target.Key.String(),
				"fields", dropped,
			)
		}
		return fn(ctx, env, target, payload)
	})
}

// decodePayload decodes raw into P. When a JSON object does not decode as a
// whole it is decoded field by field; the names of fields that did not fit
// are returned. Input that is not a JSON object yields the zero P and the error.
func decodePayload[P any](raw json.RawMessage) (P, []string, error) {
	var payload P
	if len(raw) == 0 {
		return payload, nil, nil
	}
	err := json.Unmarshal(raw, &payload)
	if err == nil {
		return payload, nil, nil
	}

	var zero P
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil || fields == nil {
		return zero, nil, err
	}
	payload = zero
	var dropped []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		field, mErr := json.Marshal(map[string]json.RawMessage{name: fields[name]})
		if mErr != nil {
			dropped = append(dropped, name)
			continue
		}
		candidate := payload
		if json.Unmarshal(field, &candidate) != nil {
			dropped = append(dropped, name)
			continue
		}
		payload = candidate
	}
	return payload, dropped, nil
}

// Build freezes the registrations.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("build dispatch registry: %w", errors.Join(b.errs...))
	}
	handlers := make(map[models.ActionKey]HandlerFunc, len(b.handlers))
	for k, fn := range b.handlers {
		handlers[k] = fn
	}
	return &Registry{handlers: handlers}, nil
}

// Registry is the immutable handler table. It is safe for concurrent use.
type Registry struct {
	handlers map[models.ActionKey]HandlerFunc
}

// Has reports whether a handler exists for the pair.
func (r *Registry) Has(objectType, action string) bool {
	_, ok := r.handlers[models.NewActionKey(objectType, action)]
	return ok
}

// Keys returns the registered pairs, sorted.
func (r *Registry) Keys() []models.ActionKey {
	keys := make([]models.ActionKey, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b models.ActionKey) int {
		return cmp.Compare(a.String(), b.String())
	})
	return keys
}

// Perform invokes the handler registered for req inside env.Conn.
// An unregistered pair fails with CodeUnregisteredHandler.
func (r *Registry) Perform(ctx context.Context, env Env, req *models.ApprovalRequest) error {
	key := req.Key()
	ctx, span := tracer.Start(ctx, "dispatch.Perform")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("approval_id", req.ID),
		attribute.String("object_type", key.ObjectType),
		attribute.String("action", key.Action),
	)

	fn, ok := r.handlers[key]
	if !ok {
		err := dErrors.New(dErrors.CodeUnregisteredHandler, "no action handler registered for "+key.String())
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	target := Target{ApprovalID: req.ID, Key: key, Ref: models.ParseObjectRef(req.ObjectID)}
	if err := fn(ctx, env, target, req.Payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
