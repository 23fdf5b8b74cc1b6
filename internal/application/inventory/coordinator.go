package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// Pasos del protocolo de una operación de stock.
const (
	StepValidate = "validate"
	StepDebit    = "debit"
	StepCredit   = "credit"
	StepRecord   = "record"
	StepCommit   = "commit"
)

// Meta datos opcionales que se copian tal cual al movimiento.
type Meta struct {
	ReferenceNumber string
	Notes           string
}

// ScopeQuantity cantidad resultante de un alcance afectado.
type ScopeQuantity struct {
	Scope    entity.Scope `json:"scope"`
	Quantity int64        `json:"quantity"`
}

// Outcome resultado de una operación confirmada.
type Outcome struct {
	TransactionID   string
	Movements       []*entity.StockMovement
	Quantities      []ScopeQuantity
	ProductQuantity int64
}

// QuantityOf cantidad resultante de un alcance hoja afectado (false si no se tocó).
func (o *Outcome) QuantityOf(scope entity.Scope) (int64, bool) {
	for _, q := range o.Quantities {
		if q.Scope.Leaf() == scope.Leaf() {
			return q.Quantity, true
		}
	}
	return 0, false
}

// BatchReceipt datos de un lote recibido. BatchID se genera si viene vacío.
// Si ReferenceNumber está vacío, el movimiento usa el número de lote.
type BatchReceipt struct {
	BatchID           string
	ProductID         string
	VariantID         string
	WarehouseID       string
	BatchNumber       string
	Quantity          int64
	ManufacturingDate *time.Time
	ExpiryDate        time.Time
	Meta              Meta
}

// atomicRunner lo implementan los TxRunner que pueden informar si revierten la unidad de trabajo completa.
type atomicRunner interface {
	Atomic() bool
}

// StockCoordinator es la única superficie de mutación de cantidades: ejecuta cada operación como
// Validate → Debit → Credit → Record → Committed/Aborted dentro de una unidad de trabajo y
// compensa los pasos aplicados cuando el almacenamiento no revierte por sí mismo.
type StockCoordinator struct {
	runner   TxRunner
	agg      *QuantityAggregator
	auth     Authorizer
	listener StockChangeListener
	log      zerolog.Logger
	now      func() time.Time
}

// Option configura el coordinador.
type Option func(*StockCoordinator)

// WithLogger inyecta el logger (por defecto zerolog.Nop()).
func WithLogger(l zerolog.Logger) Option {
	return func(c *StockCoordinator) { c.log = l }
}

// WithAuthorizer inyecta el predicado de permisos (por defecto AllowAll).
func WithAuthorizer(a Authorizer) Option {
	return func(c *StockCoordinator) { c.auth = a }
}

// WithListener registra quien recibe aviso tras cada commit.
func WithListener(l StockChangeListener) Option {
	return func(c *StockCoordinator) { c.listener = l }
}

// WithClock reemplaza el reloj (usado para FEFO).
func WithClock(now func() time.Time) Option {
	return func(c *StockCoordinator) { c.now = now }
}

// NewStockCoordinator construye el coordinador.
func NewStockCoordinator(runner TxRunner, agg *QuantityAggregator, opts ...Option) *StockCoordinator {
	c := &StockCoordinator{
		runner: runner,
		agg:    agg,
		auth:   AllowAll,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AdjustQuantity aplica un delta con signo al alcance y registra el movimiento inferido
// (incoming, outgoing o adjustment si delta es cero).
func (c *StockCoordinator) AdjustQuantity(ctx context.Context, scope entity.Scope, delta int64, meta Meta) (*Outcome, error) {
	if err := c.authorize(ctx, OpAdjust, scope); err != nil {
		return nil, err
	}
	return c.execute(ctx, OpAdjust, func(w *work) error {
		t, err := w.resolve(scope)
		if err != nil {
			return err
		}
		return w.adjust(t, delta, meta)
	})
}

// SetQuantity lleva el alcance a una cantidad absoluta; se convierte a delta bajo el bloqueo.
func (c *StockCoordinator) SetQuantity(ctx context.Context, scope entity.Scope, target int64, meta Meta) (*Outcome, error) {
	if target < 0 {
		return nil, domain.Invalid("quantity", "no puede ser negativa")
	}
	if err := c.authorize(ctx, OpAdjust, scope); err != nil {
		return nil, err
	}
	return c.execute(ctx, OpAdjust, func(w *work) error {
		t, err := w.resolve(scope)
		if err != nil {
			return err
		}
		current, err := c.agg.Current(w.ctx, w.tx, t)
		if err != nil {
			return err
		}
		return w.adjust(t, target-current, meta)
	})
}

// TransferStock mueve amount entre dos bodegas del mismo producto, o entre dos lotes si ambos
// alcances indican lote. Escribe exactamente un movimiento transfer.
func (c *StockCoordinator) TransferStock(ctx context.Context, source, target entity.Scope, amount int64, meta Meta) (*Outcome, error) {
	if source.BatchID != "" || target.BatchID != "" {
		if source.BatchID == "" || target.BatchID == "" {
			return nil, domain.Invalid("source_batch_id/target_batch_id", "ambos son obligatorios en un traslado entre lotes")
		}
		return c.TransferBatch(ctx, source.BatchID, target.BatchID, amount, meta)
	}
	if amount <= 0 {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	if source.ProductID == "" {
		return nil, domain.Invalid("product_id", "requerido")
	}
	if target.ProductID == "" {
		target.ProductID = source.ProductID
	}
	if target.ProductID != source.ProductID {
		return nil, domain.Invalid("product_id", "origen y destino deben ser del mismo producto")
	}
	if source.VariantID != "" || target.VariantID != "" {
		return nil, domain.Invalid("variant_id", "las variantes no se ubican por bodega")
	}
	if source.WarehouseID == "" || target.WarehouseID == "" {
		return nil, domain.Invalid("source_warehouse_id/target_warehouse_id", "ambos son obligatorios en un traslado")
	}
	if source.WarehouseID == target.WarehouseID {
		return nil, domain.Invalid("target_warehouse_id", "debe ser distinta de la bodega origen")
	}
	if err := c.authorize(ctx, OpTransfer, source, target); err != nil {
		return nil, err
	}
	return c.execute(ctx, OpTransfer, func(w *work) error {
		src, err := w.resolve(source)
		if err != nil {
			return err
		}
		dst, err := w.resolve(target)
		if err != nil {
			return err
		}
		w.describe(src.Scope, amount)
		if err := w.validateAvailable(src, amount); err != nil {
			return err
		}
		if err := w.debit(src, amount); err != nil {
			return err
		}
		if err := w.credit(dst, amount); err != nil {
			return err
		}
		return w.record(&entity.StockMovement{
			ProductID:         src.Product.ID,
			Type:              entity.MovementTypeTransfer,
			Quantity:          amount,
			ReferenceNumber:   meta.ReferenceNumber,
			Notes:             meta.Notes,
			SourceWarehouseID: src.Scope.WarehouseID,
			TargetWarehouseID: dst.Scope.WarehouseID,
		})
	})
}

// TransferBatch mueve amount entre dos lotes del mismo producto. Lotes de productos distintos
// se rechazan con ErrCrossProduct. Si los lotes están en bodegas distintas el movimiento
// también referencia ambas bodegas.
func (c *StockCoordinator) TransferBatch(ctx context.Context, sourceBatchID, targetBatchID string, amount int64, meta Meta) (*Outcome, error) {
	if amount <= 0 {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	if sourceBatchID == "" || targetBatchID == "" {
		return nil, domain.Invalid("source_batch_id/target_batch_id", "ambos son obligatorios en un traslado")
	}
	if sourceBatchID == targetBatchID {
		return nil, domain.Invalid("target_batch_id", "debe ser distinto del lote origen")
	}
	source := entity.Scope{BatchID: sourceBatchID}
	target := entity.Scope{BatchID: targetBatchID}
	if err := c.authorize(ctx, OpTransfer, source, target); err != nil {
		return nil, err
	}
	return c.execute(ctx, OpTransfer, func(w *work) error {
		sb, err := w.tx.Batches.GetByID(w.ctx, sourceBatchID)
		if err != nil {
			return err
		}
		tb, err := w.tx.Batches.GetByID(w.ctx, targetBatchID)
		if err != nil {
			return err
		}
		if sb == nil || tb == nil {
			missing := sourceBatchID
			if sb != nil {
				missing = targetBatchID
			}
			return fmt.Errorf("%w: lote %s", domain.ErrNotFound, missing)
		}
		if sb.ProductID != tb.ProductID {
			return fmt.Errorf("%w: %s es de %s y %s es de %s", domain.ErrCrossProduct, sb.BatchNumber, sb.ProductID, tb.BatchNumber, tb.ProductID)
		}
		src, err := w.resolve(sb.Scope())
		if err != nil {
			return err
		}
		dst, err := w.resolve(tb.Scope())
		if err != nil {
			return err
		}
		w.describe(src.Scope, amount)
		if err := w.validateAvailable(src, amount); err != nil {
			return err
		}
		if err := w.debit(src, amount); err != nil {
			return err
		}
		if err := w.credit(dst, amount); err != nil {
			return err
		}
		m := &entity.StockMovement{
			ProductID:       sb.ProductID,
			Type:            entity.MovementTypeTransfer,
			Quantity:        amount,
			ReferenceNumber: meta.ReferenceNumber,
			Notes:           meta.Notes,
			SourceBatchID:   sb.ID,
			TargetBatchID:   tb.ID,
		}
		if sb.VariantID == tb.VariantID {
			m.VariantID = sb.VariantID
		}
		if sb.WarehouseID != tb.WarehouseID {
			m.SourceWarehouseID, m.TargetWarehouseID = sb.WarehouseID, tb.WarehouseID
		}
		return w.record(m)
	})
}

// ReceiveBatch crea el lote y acredita su cantidad (solo Credit) con un movimiento incoming.
func (c *StockCoordinator) ReceiveBatch(ctx context.Context, r BatchReceipt) (*Outcome, error) {
	switch {
	case r.ProductID == "":
		return nil, domain.Invalid("product_id", "requerido")
	case r.BatchNumber == "":
		return nil, domain.Invalid("batch_number", "requerido")
	case r.Quantity <= 0:
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	case r.ExpiryDate.IsZero():
		return nil, domain.Invalid("expiry_date", "requerida")
	case r.ManufacturingDate != nil && r.ManufacturingDate.After(r.ExpiryDate):
		return nil, domain.Invalid("manufacturing_date", "posterior al vencimiento")
	}
	scope := entity.Scope{ProductID: r.ProductID, VariantID: r.VariantID, WarehouseID: r.WarehouseID}
	if err := c.authorize(ctx, OpReceiveBatch, scope); err != nil {
		return nil, err
	}
	return c.execute(ctx, OpReceiveBatch, func(w *work) error {
		p, err := w.tx.Products.GetForUpdate(w.ctx, r.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, r.ProductID)
		}
		if r.VariantID != "" {
			v, err := w.tx.Variants.GetByID(w.ctx, r.VariantID)
			if err != nil {
				return err
			}
			if v == nil {
				return fmt.Errorf("%w: variante %s", domain.ErrNotFound, r.VariantID)
			}
			if v.ProductID != p.ID {
				return domain.Invalid("variant_id", "la variante no pertenece al producto")
			}
		}
		if r.WarehouseID != "" {
			wh, err := w.tx.Warehouses.GetByID(w.ctx, r.WarehouseID)
			if err != nil {
				return err
			}
			if wh == nil {
				return fmt.Errorf("%w: bodega %s", domain.ErrNotFound, r.WarehouseID)
			}
		}
		rows, err := w.tx.Stock.ListByProduct(w.ctx, p.ID)
		if err != nil {
			return err
		}
		for _, s := range rows {
			if s.BatchID == "" && s.Quantity != 0 {
				return domain.Invalid("batch_id", "el producto tiene stock sin lote")
			}
		}

		id := r.BatchID
		if id == "" {
			id = uuid.NewString()
		}
		now := c.now()
		b := &entity.Batch{
			ID:                id,
			ProductID:         p.ID,
			VariantID:         r.VariantID,
			WarehouseID:       r.WarehouseID,
			BatchNumber:       r.BatchNumber,
			ManufacturingDate: r.ManufacturingDate,
			ExpiryDate:        r.ExpiryDate,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := w.tx.Batches.Create(w.ctx, b); err != nil {
			return err
		}
		w.onUndo("eliminar lote "+b.BatchNumber, func(ctx context.Context) error {
			return w.tx.Batches.Delete(ctx, b.ID)
		})
		t, err := w.resolve(b.Scope())
		if err != nil {
			return err
		}
		w.describe(t.Scope, r.Quantity)
		if err := w.credit(t, r.Quantity); err != nil {
			return err
		}
		ref := r.Meta.ReferenceNumber
		if ref == "" {
			ref = b.BatchNumber
		}
		return w.record(&entity.StockMovement{
			ProductID:       p.ID,
			VariantID:       b.VariantID,
			WarehouseID:     b.WarehouseID,
			BatchID:         b.ID,
			Type:            entity.MovementTypeIncoming,
			Quantity:        r.Quantity,
			ReferenceNumber: ref,
			Notes:           r.Meta.Notes,
		})
	})
}

// ConsumeFEFO descuenta amount de los lotes del producto (de una bodega si warehouseID no es vacío),
// primero el que vence antes; nunca consume lotes vencidos. Un movimiento outgoing por lote tocado.
func (c *StockCoordinator) ConsumeFEFO(ctx context.Context, productID, warehouseID string, amount int64, meta Meta) (*Outcome, error) {
	if productID == "" {
		return nil, domain.Invalid("product_id", "requerido")
	}
	if amount <= 0 {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	scope := entity.Scope{ProductID: productID, WarehouseID: warehouseID}
	if err := c.authorize(ctx, OpConsume, scope); err != nil {
		return nil, err
	}
	return c.execute(ctx, OpConsume, func(w *work) error {
		p, err := w.tx.Products.GetForUpdate(w.ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
		}
		batches, err := w.tx.Batches.ListByProduct(w.ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		w.describe(scope, amount)
		plan, shortfall := domaininv.PlanFEFO(batches, amount, c.now())
		if shortfall > 0 {
			return &domain.InsufficientStockError{Scope: scope.Key(), Available: amount - shortfall, Requested: amount}
		}
		// Primero todos los débitos; los movimientos se registran al final.
		for _, a := range plan {
			t, err := w.resolve(a.Batch.Scope())
			if err != nil {
				return err
			}
			if err := w.debit(t, a.Quantity); err != nil {
				return err
			}
		}
		for _, a := range plan {
			if err := w.record(&entity.StockMovement{
				ProductID:       p.ID,
				VariantID:       a.Batch.VariantID,
				WarehouseID:     a.Batch.WarehouseID,
				BatchID:         a.Batch.ID,
				Type:            entity.MovementTypeOutgoing,
				Quantity:        a.Quantity,
				ReferenceNumber: meta.ReferenceNumber,
				Notes:           meta.Notes,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *StockCoordinator) authorize(ctx context.Context, op OperationKind, scopes ...entity.Scope) error {
	for _, s := range scopes {
		if !c.auth.CanPerform(ctx, op, s) {
			return fmt.Errorf("%w: %s sobre %s", domain.ErrForbidden, op, s)
		}
	}
	return nil
}

func (c *StockCoordinator) atomic() bool {
	a, ok := c.runner.(atomicRunner)
	return ok && a.Atomic()
}

// execute corre fn en una unidad de trabajo y lleva la operación a Committed o Aborted.
func (c *StockCoordinator) execute(ctx context.Context, op OperationKind, fn func(w *work) error) (*Outcome, error) {
	txID := uuid.NewString()
	logger := c.log.With().Str("op", string(op)).Str("tx", txID).Logger()

	var done *work
	err := c.runner.Run(ctx, func(ctx context.Context, tx Repos) error {
		w := &work{
			c:     c,
			ctx:   ctx,
			tx:    tx,
			log:   logger,
			step:  StepValidate,
			out:   &Outcome{TransactionID: txID},
			seen:  map[string]bool{},
			atomc: c.atomic(),
		}
		done = w
		if err := fn(w); err != nil {
			return w.abort(err)
		}
		return nil
	})
	if err != nil {
		if !domain.IsKnown(err) && !isContextErr(err) {
			step, scope, amount := StepValidate, "", int64(0)
			if done != nil {
				step, scope, amount = StepCommit, done.scope.Key(), done.amount
			}
			err = &domain.StorageError{Step: step, Scope: scope, Amount: amount, Err: err}
		}
		ev := logger.Info()
		if errors.Is(err, domain.ErrStorage) {
			ev = logger.Warn()
		}
		ev.Err(err).Msg("operación de stock abortada")
		return nil, err
	}

	out := done.out
	if c.listener != nil {
		c.listener.StockChanged(context.WithoutCancel(ctx), done.products...)
	}
	logger.Debug().
		Int("movimientos", len(out.Movements)).
		Int64("cantidad_producto", out.ProductQuantity).
		Msg("operación de stock confirmada")
	return out, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// work estado de una operación en curso dentro de su unidad de trabajo.
type work struct {
	c        *StockCoordinator
	ctx      context.Context
	tx       Repos
	log      zerolog.Logger
	step     string
	scope    entity.Scope
	amount   int64
	undo     []undoEntry
	out      *Outcome
	seen     map[string]bool
	products []string
	atomc    bool
	recorded int
}

// undoEntry deshace un delta aplicado o, si run no es nil, una escritura que no es de cantidad.
type undoEntry struct {
	target *Target
	delta  int64
	desc   string
	run    func(ctx context.Context) error
}

func (w *work) onUndo(desc string, run func(ctx context.Context) error) {
	w.undo = append(w.undo, undoEntry{desc: desc, run: run})
}

func (w *work) describe(scope entity.Scope, amount int64) {
	w.scope, w.amount = scope, amount
}

func (w *work) resolve(scope entity.Scope) (*Target, error) {
	t, err := w.c.agg.Resolve(w.ctx, w.tx, scope)
	if err != nil {
		return nil, err
	}
	if !w.seen["p:"+t.Product.ID] {
		w.seen["p:"+t.Product.ID] = true
		w.products = append(w.products, t.Product.ID)
	}
	return t, nil
}

func (w *work) validateAvailable(t *Target, amount int64) error {
	current, err := w.c.agg.Current(w.ctx, w.tx, t)
	if err != nil {
		return err
	}
	if current < amount {
		return &domain.InsufficientStockError{Scope: t.Scope.Key(), Available: current, Requested: amount}
	}
	return nil
}

// adjust aplica un delta simple (débito o crédito) y registra el movimiento inferido.
func (w *work) adjust(t *Target, delta int64, meta Meta) error {
	w.describe(t.Scope, domaininv.Magnitude(delta))
	current, err := w.c.agg.Current(w.ctx, w.tx, t)
	if err != nil {
		return err
	}
	switch {
	case delta < 0:
		if current < -delta {
			return &domain.InsufficientStockError{Scope: t.Scope.Key(), Available: current, Requested: -delta}
		}
		if err := w.debit(t, -delta); err != nil {
			return err
		}
	case delta > 0:
		if err := w.credit(t, delta); err != nil {
			return err
		}
	default:
		w.track(t, current)
	}
	return w.record(&entity.StockMovement{
		ProductID:       t.Product.ID,
		VariantID:       t.Scope.VariantID,
		WarehouseID:     t.Scope.WarehouseID,
		BatchID:         t.Scope.BatchID,
		Type:            domaininv.InferMovementType(current, current+delta),
		Quantity:        domaininv.Magnitude(delta),
		ReferenceNumber: meta.ReferenceNumber,
		Notes:           meta.Notes,
	})
}

// debit descuenta amount. Desde aquí la operación ya no atiende la cancelación del llamador:
// termina confirmada o compensada.
func (w *work) debit(t *Target, amount int64) error {
	w.step = StepDebit
	q, err := w.c.agg.Apply(w.ctx, w.tx, t, -amount)
	if err != nil {
		return err
	}
	w.ctx = context.WithoutCancel(w.ctx)
	w.undo = append(w.undo, undoEntry{target: t, delta: amount})
	w.track(t, q)
	return nil
}

func (w *work) credit(t *Target, amount int64) error {
	w.step = StepCredit
	q, err := w.c.agg.Apply(w.ctx, w.tx, t, amount)
	if err != nil {
		return err
	}
	w.ctx = context.WithoutCancel(w.ctx)
	w.undo = append(w.undo, undoEntry{target: t, delta: -amount})
	w.track(t, q)
	return nil
}

func (w *work) record(m *entity.StockMovement) error {
	w.step = StepRecord
	m.TransactionID = w.out.TransactionID
	m.CreatedBy = ActorFrom(w.ctx).UserID
	if err := NewLedger(w.tx.Movements).Append(w.ctx, m); err != nil {
		return err
	}
	w.recorded++
	w.out.Movements = append(w.out.Movements, m)
	return nil
}

func (w *work) track(t *Target, q int64) {
	key := t.Scope.Leaf().Key()
	w.out.ProductQuantity = t.Product.Quantity
	if w.seen[key] {
		for i := range w.out.Quantities {
			if w.out.Quantities[i].Scope.Leaf().Key() == key {
				w.out.Quantities[i].Quantity = q
			}
		}
		return
	}
	w.seen[key] = true
	w.out.Quantities = append(w.out.Quantities, ScopeQuantity{Scope: t.Scope, Quantity: q})
}

// abort clasifica el error del paso actual y deshace los deltas aplicados.
// Con un almacenamiento transaccional el rollback ya deja ambos lados sin cambio.
func (w *work) abort(cause error) error {
	err := cause
	if !domain.IsKnown(cause) && !isContextErr(cause) {
		err = &domain.StorageError{Step: w.step, Scope: w.scope.Key(), Amount: w.amount, Err: cause}
	}
	if len(w.undo) == 0 {
		return err
	}
	if w.atomc {
		w.log.Warn().Str("paso", w.step).Err(cause).Msg("operación revertida por la transacción")
		return err
	}

	cctx := context.WithoutCancel(w.ctx)
	var failed []error
	for i := len(w.undo) - 1; i >= 0; i-- {
		u := w.undo[i]
		if u.run != nil {
			if cerr := u.run(cctx); cerr != nil {
				failed = append(failed, fmt.Errorf("compensar %s: %w", u.desc, cerr))
			}
			continue
		}
		if _, cerr := w.c.agg.Apply(cctx, w.tx, u.target, u.delta); cerr != nil {
			failed = append(failed, fmt.Errorf("compensar %s (%+d): %w", u.target.Scope, u.delta, cerr))
		}
	}
	// Sin transacciones el libro no admite borrar filas: si alguna quedó escrita, la
	// operación compensada necesita conciliación igual que una compensación fallida.
	if w.recorded > 0 {
		failed = append(failed, fmt.Errorf("%d movimiento(s) ya registrados en el libro", w.recorded))
	}
	if len(failed) == 0 {
		w.log.Warn().Str("paso", w.step).Err(cause).Int("pasos_compensados", len(w.undo)).Msg("operación compensada")
		return err
	}

	se := &domain.StorageError{
		Step:   w.step,
		Scope:  w.scope.Key(),
		Amount: w.amount,
		Err:    errors.Join(append([]error{cause}, failed...)...),
	}
	w.log.Error().
		Str("paso", w.step).
		Str("alcance", se.Scope).
		Int64("cantidad", se.Amount).
		Err(se.Err).
		Msg("compensación fallida: requiere conciliación manual")
	return se
}
