package http

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

const dateLayout = "2006-01-02"

func toScope(s dto.ScopeDTO) entity.Scope {
	return entity.Scope{ProductID: s.ProductID, VariantID: s.VariantID, WarehouseID: s.WarehouseID, BatchID: s.BatchID}
}

func fromScope(s entity.Scope) dto.ScopeDTO {
	return dto.ScopeDTO{ProductID: s.ProductID, VariantID: s.VariantID, WarehouseID: s.WarehouseID, BatchID: s.BatchID}
}

func toMovementDTO(m *entity.StockMovement) dto.StockMovementDTO {
	return dto.StockMovementDTO{
		ID:                m.ID,
		Sequence:          m.Sequence,
		TransactionID:     m.TransactionID,
		ProductID:         m.ProductID,
		VariantID:         m.VariantID,
		WarehouseID:       m.WarehouseID,
		BatchID:           m.BatchID,
		MovementType:      m.Type,
		Quantity:          m.Quantity,
		ReferenceNumber:   m.ReferenceNumber,
		Notes:             m.Notes,
		SourceWarehouseID: m.SourceWarehouseID,
		TargetWarehouseID: m.TargetWarehouseID,
		SourceBatchID:     m.SourceBatchID,
		TargetBatchID:     m.TargetBatchID,
		CreatedAt:         m.CreatedAt,
		CreatedBy:         m.CreatedBy,
	}
}

func toMovementDTOs(list []*entity.StockMovement) []dto.StockMovementDTO {
	out := make([]dto.StockMovementDTO, 0, len(list))
	for _, m := range list {
		out = append(out, toMovementDTO(m))
	}
	return out
}

func toOperationResponse(o *inventory.Outcome) dto.StockOperationResponse {
	qs := make([]dto.ScopeQuantityDTO, 0, len(o.Quantities))
	for _, q := range o.Quantities {
		qs = append(qs, dto.ScopeQuantityDTO{ScopeDTO: fromScope(q.Scope), Quantity: q.Quantity})
	}
	return dto.StockOperationResponse{
		TransactionID:   o.TransactionID,
		ProductQuantity: o.ProductQuantity,
		Quantities:      qs,
		Movements:       toMovementDTOs(o.Movements),
	}
}

func toBatchDTOs(list []*entity.Batch) []dto.BatchDTO {
	out := make([]dto.BatchDTO, 0, len(list))
	for _, b := range list {
		out = append(out, dto.BatchDTO{
			ID:                b.ID,
			ProductID:         b.ProductID,
			VariantID:         b.VariantID,
			WarehouseID:       b.WarehouseID,
			BatchNumber:       b.BatchNumber,
			Quantity:          b.Quantity,
			ManufacturingDate: b.ManufacturingDate,
			ExpiryDate:        b.ExpiryDate,
		})
	}
	return out
}

func toReconciliationDTO(r *inventory.Reconciliation) dto.ReconciliationDTO {
	drifts := make([]dto.ScopeDriftDTO, 0, len(r.LeafDrifts)+len(r.CacheDrifts))
	for _, d := range append(append([]inventory.Drift{}, r.LeafDrifts...), r.CacheDrifts...) {
		drifts = append(drifts, dto.ScopeDriftDTO{Scope: d.Scope.Key(), Stored: d.Stored, Replayed: d.Replayed})
	}
	return dto.ReconciliationDTO{
		ProductID:      r.ProductID,
		Movements:      r.Movements,
		CachedQuantity: r.CachedQuantity,
		ReplayQuantity: r.ReplayQuantity,
		Consistent:     r.Consistent(),
		Drifts:         drifts,
	}
}

func toWarehouseResponse(w *entity.Warehouse) dto.WarehouseResponse {
	return dto.WarehouseResponse{
		ID:        w.ID,
		Name:      w.Name,
		Address:   w.Address,
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// parseDate acepta YYYY-MM-DD. Vacío devuelve nil.
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, domain.Invalid(field, "formato esperado YYYY-MM-DD")
	}
	return &t, nil
}

// parseInstant acepta RFC3339 o YYYY-MM-DD; con endOfDay una fecha sin hora cubre el día completo.
func parseInstant(field, s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, domain.Invalid(field, "formato esperado RFC3339 o YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

var movementTypes = []string{
	entity.MovementTypeIncoming, entity.MovementTypeOutgoing, entity.MovementTypeAdjustment, entity.MovementTypeTransfer,
}

// toMovementQuery valida los parámetros de consulta del libro.
func toMovementQuery(in dto.MovementQueryRequest) (repository.MovementFilter, repository.MovementQueryOptions, error) {
	f := repository.MovementFilter{
		ProductID:       in.ProductID,
		VariantID:       in.VariantID,
		WarehouseID:     in.WarehouseID,
		BatchID:         in.BatchID,
		ReferenceNumber: in.ReferenceNumber,
	}
	opts := repository.MovementQueryOptions{Limit: in.Limit}
	if in.Types != "" {
		for _, t := range strings.Split(in.Types, ",") {
			t = strings.ToLower(strings.TrimSpace(t))
			if !slices.Contains(movementTypes, t) {
				return f, opts, domain.Invalid("types", fmt.Sprintf("tipo desconocido %q", t))
			}
			f.Types = append(f.Types, t)
		}
	}
	var err error
	if f.From, err = parseInstant("from", in.From, false); err != nil {
		return f, opts, err
	}
	if f.To, err = parseInstant("to", in.To, true); err != nil {
		return f, opts, err
	}
	switch strings.ToLower(in.Order) {
	case "", string(repository.NewestFirst):
		opts.Order = repository.NewestFirst
	case string(repository.OldestFirst):
		opts.Order = repository.OldestFirst
	default:
		return f, opts, domain.Invalid("order", "valores permitidos: asc, desc")
	}
	if opts.Limit < 0 {
		return f, opts, domain.Invalid("limit", "no puede ser negativo")
	}
	if opts.Limit == 0 {
		opts.Limit = inventory.DefaultQueryLimit
	}
	return f, opts, nil
}
