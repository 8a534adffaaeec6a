package billing_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
)

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios en memoria
// ──────────────────────────────────────────────────────────────────────────────

type memDocRepo struct {
	mu      sync.Mutex
	docs    map[string]entity.SRIDocument
	updates int
}

func newMemDocRepo() *memDocRepo { return &memDocRepo{docs: map[string]entity.SRIDocument{}} }

func (r *memDocRepo) Create(_ context.Context, doc entity.SRIDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.Base().ID] = doc
	return nil
}

func (r *memDocRepo) GetByID(_ context.Context, id string) (entity.SRIDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return d, nil
}

func (r *memDocRepo) Update(_ context.Context, doc entity.SRIDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	r.docs[doc.Base().ID] = doc
	return nil
}

type memConfigRepo struct {
	cfgs map[string]*entity.SRIConfiguration
}

func (r *memConfigRepo) GetByTenantID(_ context.Context, tenantID string) (*entity.SRIConfiguration, error) {
	return r.cfgs[tenantID], nil
}

func (r *memConfigRepo) Upsert(_ context.Context, cfg *entity.SRIConfiguration) error {
	r.cfgs[cfg.TenantID] = cfg
	return nil
}

type memPointRepo struct {
	mu     sync.Mutex
	points map[string]*entity.EmissionPoint
}

func (r *memPointRepo) Create(_ context.Context, p *entity.EmissionPoint) error {
	r.points[p.ID] = p
	return nil
}

func (r *memPointRepo) GetByID(_ context.Context, id string) (*entity.EmissionPoint, error) {
	return r.points[id], nil
}

func (r *memPointRepo) AllocateNext(_ context.Context, tenantID, id string, t entity.DocumentType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.points[id]
	if !ok || p.TenantID != tenantID {
		return 0, domain.ErrNotFound
	}
	if !p.IsActive {
		return 0, domain.ErrPreconditionFailed
	}
	switch t {
	case entity.DocumentTypeInvoice:
		p.InvoiceSequence++
		return p.InvoiceSequence, nil
	case entity.DocumentTypeCreditNote:
		p.CreditNoteSequence++
		return p.CreditNoteSequence, nil
	case entity.DocumentTypeDebitNote:
		p.DebitNoteSequence++
		return p.DebitNoteSequence, nil
	case entity.DocumentTypeRetention:
		p.RetentionSequence++
		return p.RetentionSequence, nil
	}
	return 0, domain.ErrInvalidArgument
}

type memEstRepo struct {
	ests map[string]*entity.Establishment
}

func (r *memEstRepo) Create(_ context.Context, e *entity.Establishment) error {
	r.ests[e.ID] = e
	return nil
}

func (r *memEstRepo) GetByID(_ context.Context, id string) (*entity.Establishment, error) {
	return r.ests[id], nil
}

type memErrorRepo struct {
	mu      sync.Mutex
	entries []*entity.SRIErrorLog
	failAdd bool
}

func (r *memErrorRepo) Add(_ context.Context, e *entity.SRIErrorLog) error {
	if r.failAdd {
		return errors.New("base de datos caída")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memErrorRepo) GetByDocumentID(_ context.Context, tenantID, documentID string) ([]*entity.SRIErrorLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.SRIErrorLog
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memTxRunner struct {
	docs   repository.ElectronicDocumentRepository
	points repository.EmissionPointRepository
}

func (t *memTxRunner) RunInTx(_ context.Context, fn func(repository.ElectronicDocumentRepository, repository.EmissionPointRepository) error) error {
	return fn(t.docs, t.points)
}

// ──────────────────────────────────────────────────────────────────────────────
// Colaboradores
// ──────────────────────────────────────────────────────────────────────────────

type fakeBuilder struct {
	gen      *domainsri.AccessKeyGenerator
	forceKey string
	calls    int
}

func (b *fakeBuilder) Build(_ context.Context, doc entity.SRIDocument, cfg *entity.SRIConfiguration, est *entity.Establishment, point *entity.EmissionPoint) ([]byte, string, error) {
	b.calls++
	if b.forceKey != "" {
		return []byte("<factura/>"), b.forceKey, nil
	}
	in := doc.AccessKeyInputs()
	key := in.ExistingKey
	if key == "" {
		k, err := b.gen.Generate(domainsri.AccessKeyParams{
			IssueDate:         in.IssueDate,
			DocumentType:      string(in.DocumentType),
			RUC:               cfg.RUC,
			Environment:       string(in.Environment),
			EstablishmentCode: est.Code,
			EmissionPointCode: point.Code,
			Sequential:        in.Sequential,
		})
		if err != nil {
			return nil, "", err
		}
		key = k.Value()
	}
	return []byte(`<factura id="comprobante"><claveAcceso>` + key + `</claveAcceso></factura>`), key, nil
}

type fakeSigner struct {
	calls    int
	lastCert []byte
	err      error
}

func (s *fakeSigner) Sign(xml, cert []byte, password string) ([]byte, error) {
	s.calls++
	s.lastCert = cert
	if s.err != nil {
		return nil, s.err
	}
	return append([]byte("<!-- firmado -->"), xml...), nil
}

type fakeClient struct {
	submitCalls int
	authCalls   int
	submitFn    func() (*domainsri.SubmissionResult, error)
	authFn      func() (*domainsri.AuthorizationResult, error)
}

func (c *fakeClient) SubmitDocument(_ context.Context, _ []byte, _ entity.Environment) (*domainsri.SubmissionResult, error) {
	c.submitCalls++
	if c.submitFn != nil {
		return c.submitFn()
	}
	return &domainsri.SubmissionResult{IsSuccess: true, Status: "RECIBIDA"}, nil
}

func (c *fakeClient) CheckAuthorization(_ context.Context, accessKey string, _ entity.Environment) (*domainsri.AuthorizationResult, error) {
	c.authCalls++
	if c.authFn != nil {
		return c.authFn()
	}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	return &domainsri.AuthorizationResult{
		IsAuthorized:        true,
		Status:              "AUTORIZADO",
		AuthorizationNumber: accessKey,
		AuthorizationDate:   &now,
		AuthorizedXML:       "<autorizado/>",
	}, nil
}

type fakeRide struct{ calls int }

func (r *fakeRide) Render(context.Context, entity.SRIDocument, *entity.SRIConfiguration, *entity.Establishment, *entity.EmissionPoint) ([]byte, error) {
	r.calls++
	return []byte("%PDF-1.4 ride"), nil
}

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (s *memStore) Save(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[key]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	return b, nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok, nil
}

type recordedMetric struct{ op, outcome string }

type fakeMetrics struct {
	mu   sync.Mutex
	seen []recordedMetric
}

func (m *fakeMetrics) ObserveOperation(op, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, recordedMetric{op, outcome})
}

// ──────────────────────────────────────────────────────────────────────────────
// Datos base
// ──────────────────────────────────────────────────────────────────────────────

const (
	tenantA = "tenant-a"
	tenantB = "tenant-b"
)

// stepClock avanza un segundo en cada lectura.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newInvoice(id string, status entity.DocumentStatus) *entity.Invoice {
	inv := &entity.Invoice{
		ElectronicDocument: entity.ElectronicDocument{
			ID:              id,
			TenantID:        tenantA,
			Type:            entity.DocumentTypeInvoice,
			EmissionPointID: "pt-1",
			Sequential:      1,
			IssueDate:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Status:          status,
			Environment:     entity.EnvironmentTest,
			BuyerIDType:     "05",
			BuyerID:         "1710034065",
			BuyerName:       "Juan Pérez",
		},
		Lines: []entity.DocumentLine{{
			Code:              "P001",
			Description:       "Servicio",
			Quantity:          decimal.NewFromInt(1),
			UnitPrice:         decimal.NewFromInt(100),
			TaxPercentageCode: "4",
			TaxRate:           decimal.NewFromInt(15),
		}},
	}
	inv.RecalculateTotals()
	return inv
}
