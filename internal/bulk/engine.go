// Package bulk applies one JSON patch to every member of a shelf
// snapshot with a staged/committed/undone lifecycle.
package bulk

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/jsonpatch"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrForbidden is returned when the caller does not own the shelf.
	ErrForbidden = errors.New("shelf not owned by caller")
	// ErrState is returned for transitions outside staged->committed->undone.
	ErrState = errors.New("invalid bulk operation state")
	// ErrBadToken is returned when the undo token does not match.
	ErrBadToken = errors.New("undo token mismatch")
	// ErrBadRequest marks malformed staging input (scope or patch shape).
	ErrBadRequest = errors.New("bad request")
)

// Engine stages, commits and undoes bulk operations.
type Engine struct {
	ops      repository.BulkOperationRepository
	shelves  repository.ShelfRepository
	services repository.ServiceRepository
	versions repository.FieldVersionRepository
	tx       db.TxRunner
}

// NewEngine wires the bulk engine against its stores.
func NewEngine(
	ops repository.BulkOperationRepository,
	shelves repository.ShelfRepository,
	services repository.ServiceRepository,
	versions repository.FieldVersionRepository,
	tx db.TxRunner,
) *Engine {
	return &Engine{ops: ops, shelves: shelves, services: services, versions: versions, tx: tx}
}

// Stage snapshots the shelf's current members and stores the patch with a
// pending preview. Nothing is mutated yet.
func (e *Engine) Stage(ctx context.Context, scope domain.BulkScope, shelfID uuid.UUID, patch json.RawMessage) (domain.BulkOperation, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.BulkOperation{}, fmt.Errorf("no authenticated actor")
	}
	if scope != domain.ScopeShelf {
		return domain.BulkOperation{}, fmt.Errorf("%w: unsupported scope %q", ErrBadRequest, scope)
	}
	if _, err := jsonpatch.ParseOps(patch); err != nil {
		return domain.BulkOperation{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	shelf, err := e.shelves.GetByID(ctx, shelfID)
	if err != nil {
		return domain.BulkOperation{}, err
	}
	if shelf.OwnerID != identity.UserID {
		return domain.BulkOperation{}, ErrForbidden
	}

	op := domain.NewBulkOperation(identity.UserID, shelf.ID, shelf.Members, patch)
	return e.ops.Create(ctx, op)
}

// Get returns a bulk operation with its preview.
func (e *Engine) Get(ctx context.Context, opID uuid.UUID) (domain.BulkOperation, error) {
	return e.ops.GetByID(ctx, opID)
}

// Commit applies the patch to every target with per-target error
// isolation, records the inverse patches for undo, and mints a fresh
// random undo token. Only valid from the staged state.
func (e *Engine) Commit(ctx context.Context, opID uuid.UUID) (domain.BulkOperation, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.BulkOperation{}, fmt.Errorf("no authenticated actor")
	}

	op, err := e.ops.GetByID(ctx, opID)
	if err != nil {
		return domain.BulkOperation{}, err
	}
	if op.Status != domain.BulkStaged {
		return domain.BulkOperation{}, ErrState
	}

	ops, err := jsonpatch.ParseOps(op.Patch)
	if err != nil {
		return domain.BulkOperation{}, err
	}

	inverses := make(map[string][]jsonpatch.Op, len(op.Targets))
	for i, target := range op.Targets {
		if target.EntityType != domain.EntityService {
			op.Preview[i] = domain.TargetPreview{Target: target, Status: domain.TargetSkipped, Detail: "only service targets are writable"}
			continue
		}
		inverse, err := e.applyToService(ctx, target.EntityID, ops, identity.UserID)
		if err != nil {
			op.Preview[i] = domain.TargetPreview{Target: target, Status: domain.TargetFailed, Detail: err.Error()}
			continue
		}
		inverses[target.EntityID] = inverse
		op.Preview[i] = domain.TargetPreview{Target: target, Status: domain.TargetApplied}
	}

	inversesJSON, err := json.Marshal(inverses)
	if err != nil {
		return domain.BulkOperation{}, fmt.Errorf("marshal inverses: %w", err)
	}

	token, err := newUndoToken()
	if err != nil {
		return domain.BulkOperation{}, err
	}

	now := time.Now()
	op.Status = domain.BulkCommitted
	op.CommittedAt = &now
	op.UndoToken = token
	op.Inverses = inversesJSON
	return e.ops.Update(ctx, op)
}

// Undo replays the recorded inverse patches. Only valid from the
// committed state with the exact undo token.
func (e *Engine) Undo(ctx context.Context, opID uuid.UUID, token string) (domain.BulkOperation, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.BulkOperation{}, fmt.Errorf("no authenticated actor")
	}

	op, err := e.ops.GetByID(ctx, opID)
	if err != nil {
		return domain.BulkOperation{}, err
	}
	if op.Status != domain.BulkCommitted {
		return domain.BulkOperation{}, ErrState
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(op.UndoToken)) != 1 {
		return domain.BulkOperation{}, ErrBadToken
	}

	var inverses map[string][]jsonpatch.Op
	if len(op.Inverses) > 0 {
		if err := json.Unmarshal(op.Inverses, &inverses); err != nil {
			return domain.BulkOperation{}, fmt.Errorf("unmarshal inverses: %w", err)
		}
	}

	for i, target := range op.Targets {
		inverse, ok := inverses[target.EntityID]
		if !ok || len(inverse) == 0 {
			continue
		}
		if _, err := e.applyToService(ctx, target.EntityID, inverse, identity.UserID); err != nil {
			op.Preview[i] = domain.TargetPreview{Target: target, Status: domain.TargetFailed, Detail: "undo: " + err.Error()}
			continue
		}
		op.Preview[i] = domain.TargetPreview{Target: target, Status: domain.TargetPending, Detail: "reverted"}
	}

	now := time.Now()
	op.Status = domain.BulkUndone
	op.UndoneAt = &now
	return e.ops.Update(ctx, op)
}

// applyToService patches one service document, persists the fields whose
// values changed, bumps their versions, and returns the inverse ops. Each
// target runs in its own transaction so one failure cannot corrupt the
// rest of the batch.
func (e *Engine) applyToService(ctx context.Context, rawID string, ops []jsonpatch.Op, actor uuid.UUID) ([]jsonpatch.Op, error) {
	serviceID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid service id %q", rawID)
	}

	var inverse []jsonpatch.Op
	err = e.tx.RunInTx(ctx, func(ctx context.Context) error {
		svc, err := e.services.GetByID(ctx, serviceID)
		if err != nil {
			return err
		}
		source := svc.Document()

		inverse, err = jsonpatch.Inverse(ops, source)
		if err != nil {
			return err
		}
		patched, err := jsonpatch.Apply(source, ops)
		if err != nil {
			return err
		}
		patchedDoc, ok := patched.(map[string]any)
		if !ok {
			return fmt.Errorf("patch must produce an object")
		}

		var changed []string
		for _, field := range domain.EditableServiceFields {
			value, ok := patchedDoc[field].(string)
			if !ok {
				continue
			}
			current, _ := source[field].(string)
			if current == value {
				continue
			}
			svc, err = svc.WithField(field, value)
			if err != nil {
				return err
			}
			changed = append(changed, field)
		}
		if len(changed) == 0 {
			inverse = nil
			return nil
		}
		if _, err := e.services.Update(ctx, svc); err != nil {
			return err
		}
		for _, field := range changed {
			if _, err := e.versions.Bump(ctx, domain.EntityService, svc.ID, "service."+field, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inverse, nil
}

func newUndoToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate undo token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
