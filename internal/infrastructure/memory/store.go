// Package memory implementa los puertos de inventario en memoria (modo desarrollo y pruebas).
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// DefaultLockTimeout espera máxima por el bloqueo de un producto.
const DefaultLockTimeout = 2 * time.Second

type state struct {
	products   map[string]*entity.Product
	variants   map[string]*entity.Variant
	warehouses map[string]*entity.Warehouse
	batches    map[string]*entity.Batch
	stock      map[entity.Scope]*entity.Stock
}

func newState() *state {
	return &state{
		products:   map[string]*entity.Product{},
		variants:   map[string]*entity.Variant{},
		warehouses: map[string]*entity.Warehouse{},
		batches:    map[string]*entity.Batch{},
		stock:      map[entity.Scope]*entity.Stock{},
	}
}

// Store guarda catálogo, contadores y libro en memoria. Las escrituras de una unidad de trabajo
// se aplican de una vez al confirmar, así que ninguna lectura ve un traslado a medias.
type Store struct {
	mu        sync.RWMutex
	base      *state
	movements []*entity.StockMovement
	seq       int64
	lastAt    time.Time

	lockMu      sync.Mutex
	locks       map[string]*semaphore.Weighted
	lockTimeout time.Duration
	autocommit  bool
	now         func() time.Time
}

// Option configura el Store.
type Option func(*Store)

// WithLockTimeout cambia la espera máxima por el bloqueo de un producto.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithAutocommit hace que cada escritura se aplique al momento, como un almacenamiento
// sin transacciones; el coordinador compensa los pasos aplicados si algo falla.
func WithAutocommit() Option {
	return func(s *Store) { s.autocommit = true }
}

// WithClock reemplaza el reloj usado en CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore crea un almacenamiento vacío.
func NewStore(opts ...Option) *Store {
	s := &Store{
		base:        newState(),
		locks:       map[string]*semaphore.Weighted{},
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Repos repositorios de lectura sobre el estado confirmado (sin bloqueos).
func (s *Store) Repos() inventory.Repos {
	return (&unit{s: s}).repos()
}

// Run implementa inventory.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u := &unit{s: s, held: map[string]bool{}}
	if !s.autocommit {
		u.over = newState()
	}
	defer u.release()

	if err := fn(ctx, u.repos()); err != nil {
		return err
	}
	u.commit()
	return nil
}

// Atomic indica si un error dentro de Run descarta todas las escrituras.
func (s *Store) Atomic() bool { return !s.autocommit }

// ── Catálogo (colaborador externo: altas directas) ──────────────────────────

// AddProduct registra un producto. Quantity debe respaldarse con movimientos; se ignora.
func (s *Store) AddProduct(p *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.base.products[p.ID]; ok {
		return fmt.Errorf("%w: producto %s", domain.ErrDuplicate, p.ID)
	}
	for _, o := range s.base.products {
		if o.SKU == p.SKU {
			return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, p.SKU)
		}
	}
	c := *p
	c.Quantity = 0
	s.base.products[p.ID] = &c
	return nil
}

// AddVariant registra una variante; (producto, atributo, valor) es único.
func (s *Store) AddVariant(v *entity.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.base.products[v.ProductID]; !ok {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, v.ProductID)
	}
	for _, o := range s.base.variants {
		if o.ID == v.ID || (o.ProductID == v.ProductID && o.AttributeName == v.AttributeName && o.Value == v.Value) {
			return fmt.Errorf("%w: variante %s=%s", domain.ErrDuplicate, v.AttributeName, v.Value)
		}
	}
	c := *v
	c.Stock = 0
	s.base.variants[v.ID] = &c
	return nil
}

// AddWarehouse registra una bodega.
func (s *Store) AddWarehouse(w *entity.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.base.warehouses[w.ID]; ok {
		return fmt.Errorf("%w: bodega %s", domain.ErrDuplicate, w.ID)
	}
	c := *w
	s.base.warehouses[w.ID] = &c
	return nil
}

// Movements copia del libro confirmado en orden de inserción.
func (s *Store) Movements() []*entity.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.StockMovement, len(s.movements))
	for i, m := range s.movements {
		c := *m
		out[i] = &c
	}
	return out
}

func (s *Store) lockFor(productID string) *semaphore.Weighted {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[productID]
	if !ok {
		l = semaphore.NewWeighted(1)
		s.locks[productID] = l
	}
	return l
}

// stamp asigna secuencia y fecha a un movimiento (llamar con mu tomado).
func (s *Store) stamp(m *entity.StockMovement) {
	s.seq++
	m.Sequence = s.seq
	at := s.now().UTC()
	if at.Before(s.lastAt) {
		at = s.lastAt
	}
	s.lastAt = at
	m.CreatedAt = at
	c := *m
	s.movements = append(s.movements, &c)
}

// unit una unidad de trabajo. over es nil en autocommit; held es nil en lecturas sin bloqueo.
type unit struct {
	s       *Store
	over    *state
	held    map[string]bool
	pending []*entity.StockMovement
}

func (u *unit) repos() inventory.Repos {
	return inventory.Repos{
		Movements:  &movementRepo{u: u},
		Stock:      &stockRepo{u: u},
		Products:   &productRepo{u: u},
		Variants:   &variantRepo{u: u},
		Batches:    &batchRepo{u: u},
		Warehouses: &warehouseRepo{u: u},
	}
}

// lockProduct toma el bloqueo del producto una sola vez por unidad de trabajo.
func (u *unit) lockProduct(ctx context.Context, productID string) error {
	if u.held == nil || u.held[productID] {
		return nil
	}
	lctx, cancel := context.WithTimeout(ctx, u.s.lockTimeout)
	defer cancel()
	if err := u.s.lockFor(productID).Acquire(lctx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: producto %s", domain.ErrContention, productID)
	}
	u.held[productID] = true
	return nil
}

func (u *unit) release() {
	for id := range u.held {
		u.s.lockFor(id).Release(1)
	}
	u.held = nil
}

// write aplica fn sobre el estado de la unidad: el overlay o, en autocommit, el estado base.
func (u *unit) write(fn func(st *state)) {
	if u.over != nil {
		fn(u.over)
		return
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	fn(u.s.base)
}

func (u *unit) commit() {
	if u.over == nil && len(u.pending) == 0 {
		return
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.over != nil {
		for k, v := range u.over.products {
			u.s.base.products[k] = v
		}
		for k, v := range u.over.variants {
			u.s.base.variants[k] = v
		}
		for k, v := range u.over.warehouses {
			u.s.base.warehouses[k] = v
		}
		for k, v := range u.over.batches {
			u.s.base.batches[k] = v
		}
		for k, v := range u.over.stock {
			u.s.base.stock[k] = v
		}
	}
	for _, m := range u.pending {
		u.s.stamp(m)
	}
	u.pending = nil
}

// view combina el estado base con el overlay de la unidad (el overlay gana).
func view[K comparable, V any](base, over map[K]V) map[K]V {
	out := make(map[K]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func lookup[K comparable, V any](u *unit, pick func(st *state) map[K]V, key K) (V, bool) {
	if u.over != nil {
		if v, ok := pick(u.over)[key]; ok {
			return v, true
		}
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	v, ok := pick(u.s.base)[key]
	return v, ok
}

func all[K comparable, V any](u *unit, pick func(st *state) map[K]V) map[K]V {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	if u.over == nil {
		return view(pick(u.s.base), nil)
	}
	return view(pick(u.s.base), pick(u.over))
}
