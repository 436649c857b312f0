package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/event"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/repository"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/service"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
)

// fakeProductRepository is an in-memory stand-in for
// repository.ProductRepository, enforcing the same optimistic-version
// contract a real store would.
type fakeProductRepository struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	versions map[string]uint64
}

func newFakeProductRepository(products ...*entity.Product) *fakeProductRepository {
	r := &fakeProductRepository{
		products: make(map[string]*entity.Product),
		versions: make(map[string]uint64),
	}
	for _, p := range products {
		r.products[p.Id.String()] = p
		r.versions[p.Id.String()] = p.Stock.Version
	}
	return r
}

func clone(p *entity.Product) *entity.Product {
	reservations := make(map[valueobject.ReservationId]entity.Reservation, len(p.Stock.Reservations))
	for id, r := range p.Stock.Reservations {
		reservations[id] = r
	}
	return entity.RehydrateProduct(entity.RehydrateProductParams{
		Id:                p.Id,
		Name:              p.Name,
		Available:         p.Stock.Available,
		Reserved:          p.Stock.Reserved,
		Total:             p.Stock.Total,
		Reservations:      reservations,
		Version:           p.Stock.Version,
		LowStockThreshold: p.LowStockThreshold,
		Active:            p.Active,
		CreatedAt:         p.CreatedAt,
		LastModifiedAt:    p.LastModifiedAt,
	})
}

func (r *fakeProductRepository) Load(ctx context.Context, id valueobject.ProductId) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id.String()]
	if !ok {
		return nil, entity.ErrProductNotFound
	}
	return clone(p), nil
}

func (r *fakeProductRepository) Save(ctx context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := product.Id.String()
	stored, known := r.versions[key]
	if known && stored != product.LoadedVersion() {
		return entity.ErrOptimisticConflict
	}
	r.products[key] = clone(product)
	r.versions[key] = product.Stock.Version
	product.MarkPersisted()
	return nil
}

func (r *fakeProductRepository) LoadBatch(ctx context.Context, ids []valueobject.ProductId) (map[valueobject.ProductId]*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[valueobject.ProductId]*entity.Product)
	for _, id := range ids {
		if p, ok := r.products[id.String()]; ok {
			out[id] = clone(p)
		}
	}
	return out, nil
}

func (r *fakeProductRepository) FindActiveProductsWithReservations(ctx context.Context, limit int, cursor string) (repository.ProductPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var page repository.ProductPage
	for _, p := range r.products {
		if p.Active && len(p.Stock.Reservations) > 0 {
			page.Products = append(page.Products, clone(p))
		}
	}
	return page, nil
}

func (r *fakeProductRepository) FindProductByReservationId(ctx context.Context, reservationId valueobject.ReservationId) (valueobject.ProductId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if _, ok := p.Stock.Reservations[reservationId]; ok {
			return p.Id, nil
		}
	}
	return valueobject.ProductId{}, entity.ErrProductNotFound
}

func (r *fakeProductRepository) FindReservationsByOrder(ctx context.Context, orderId string) ([]repository.ReservationRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []repository.ReservationRef
	for _, p := range r.products {
		for id, res := range p.Stock.Reservations {
			if res.OrderId == orderId {
				refs = append(refs, repository.ReservationRef{ProductId: p.Id, ReservationId: id})
			}
		}
	}
	return refs, nil
}

// fakeLockService grants every key immediately and serializes fn calls
// per key with a real mutex, close enough to the distributed lock's
// mutual-exclusion contract for use-case tests.
type fakeLockService struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFakeLockService() *fakeLockService {
	return &fakeLockService{locks: make(map[string]*sync.Mutex)}
}

func (f *fakeLockService) lockFor(key string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.locks[key]
	if !ok {
		m = &sync.Mutex{}
		f.locks[key] = m
	}
	return m
}

func (f *fakeLockService) WithLock(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration, fn func(ctx context.Context) error) error {
	m := f.lockFor(key)
	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

func (f *fakeLockService) TryLock(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration) (service.LockToken, error) {
	m := f.lockFor(key)
	if !m.TryLock() {
		return service.LockToken{}, service.ErrLockAcquisition
	}
	return service.LockToken{Key: key, Value: "token"}, nil
}

func (f *fakeLockService) Unlock(ctx context.Context, token service.LockToken) error {
	m := f.lockFor(token.Key)
	m.Unlock()
	return nil
}

// refusingLockService always fails acquisition, used to exercise the
// sweeper's skip-and-revisit behavior.
type refusingLockService struct{}

func (refusingLockService) WithLock(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration, fn func(ctx context.Context) error) error {
	return service.ErrLockAcquisition
}

func (refusingLockService) TryLock(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration) (service.LockToken, error) {
	return service.LockToken{}, service.ErrLockAcquisition
}

func (refusingLockService) Unlock(ctx context.Context, token service.LockToken) error { return nil }

// fakeEventPublisher records every event published, in order, alongside
// the correlationId it was published under.
type fakeEventPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	CorrelationId string
	Event         event.DomainEvent
}

func newFakeEventPublisher() *fakeEventPublisher {
	return &fakeEventPublisher{}
}

func (f *fakeEventPublisher) Publish(ctx context.Context, correlationId string, evt event.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{CorrelationId: correlationId, Event: evt})
	return nil
}

func (f *fakeEventPublisher) PublishBatch(ctx context.Context, correlationId string, events []event.DomainEvent) error {
	for _, evt := range events {
		if err := f.Publish(ctx, correlationId, evt); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEventPublisher) Close() error { return nil }

func (f *fakeEventPublisher) all() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fakeIdempotencyStore is an in-memory stand-in for service.IdempotencyStore.
type fakeIdempotencyStore struct {
	mu     sync.Mutex
	marked map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{marked: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) AlreadyProcessed(ctx context.Context, topic, eventId string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marked[topic+"/"+eventId], nil
}

func (f *fakeIdempotencyStore) Mark(ctx context.Context, topic, eventId string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked[topic+"/"+eventId] = true
	return nil
}

// noopLogger discards everything; use-case tests assert on published
// events and returned errors, never on log output.
type noopLogger struct{}

func (noopLogger) Debug(msg string, kv ...interface{}) {}
func (noopLogger) Info(msg string, kv ...interface{})  {}
func (noopLogger) Warn(msg string, kv ...interface{})  {}
func (noopLogger) Error(msg string, kv ...interface{}) {}
func (noopLogger) Fatal(msg string, kv ...interface{}) {}
func (noopLogger) With(kv ...interface{}) logger.Logger {
	return noopLogger{}
}
func (noopLogger) WithCorrelationID(id string) logger.Logger {
	return noopLogger{}
}
