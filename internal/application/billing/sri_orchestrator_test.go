package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
)

type fixture struct {
	docs    *memDocRepo
	configs *memConfigRepo
	points  *memPointRepo
	ests    *memEstRepo
	errs    *memErrorRepo
	builder *fakeBuilder
	signer  *fakeSigner
	client  *fakeClient
	ride    *fakeRide
	store   *memStore
	metrics *fakeMetrics
	orch    *billing.SRIOrchestrator
	start   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	expires := start.AddDate(1, 0, 0)
	f := &fixture{
		docs: newMemDocRepo(),
		configs: &memConfigRepo{cfgs: map[string]*entity.SRIConfiguration{
			tenantA: {
				ID:                   "cfg-1",
				TenantID:             tenantA,
				RUC:                  "1792146739001",
				LegalName:            "Emisor S.A.",
				MainAddress:          "Quito",
				Environment:          entity.EnvironmentTest,
				CertificateData:      []byte{1, 2, 3, 4},
				CertificatePassword:  "clave-p12",
				CertificateExpiresAt: &expires,
			},
		}},
		points: &memPointRepo{points: map[string]*entity.EmissionPoint{
			"pt-1": {ID: "pt-1", TenantID: tenantA, EstablishmentID: "est-1", Code: "001", IsActive: true, InvoiceSequence: 1},
		}},
		ests:    &memEstRepo{ests: map[string]*entity.Establishment{"est-1": {ID: "est-1", TenantID: tenantA, Code: "001"}}},
		errs:    &memErrorRepo{},
		builder: &fakeBuilder{gen: domainsri.NewAccessKeyGeneratorWithFiller(func() (string, error) { return "12345678", nil })},
		signer:  &fakeSigner{},
		client:  &fakeClient{},
		ride:    &fakeRide{},
		store:   newMemStore(),
		metrics: &fakeMetrics{},
		start:   start,
	}
	f.orch = billing.NewSRIOrchestrator(
		f.docs, f.configs, f.points, f.ests, f.errs,
		&memTxRunner{docs: f.docs, points: f.points},
		f.builder, f.signer, f.client, f.ride, f.store, f.metrics, zerolog.Nop(),
	).WithClock(stepClock(start))
	return f
}

func (f *fixture) add(t *testing.T, doc entity.SRIDocument) {
	t.Helper()
	require.NoError(t, f.docs.Create(context.Background(), doc))
}

func (f *fixture) doc(id string) *entity.ElectronicDocument {
	d, _ := f.docs.GetByID(context.Background(), id)
	return d.Base()
}

// toPendingAuthorization lleva un borrador hasta PENDING_AUTHORIZATION.
func (f *fixture) toPendingAuthorization(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.orch.GenerateXml(ctx, tenantA, id)
	require.NoError(t, err)
	_, err = f.orch.SignXml(ctx, tenantA, id)
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Contexto de tenant
// ──────────────────────────────────────────────────────────────────────────────

func TestOrchestrator_TenantVacio(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))

	_, err := f.orch.GenerateXml(context.Background(), "", "doc-1")
	assert.ErrorIs(t, err, domain.ErrTenantRequired)
	assert.Zero(t, f.builder.calls)
}

func TestOrchestrator_OtroTenantEsNoEncontrado(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))

	_, errOther := f.orch.GenerateXml(context.Background(), tenantB, "doc-1")
	_, errMissing := f.orch.GenerateXml(context.Background(), tenantB, "no-existe")

	assert.ErrorIs(t, errOther, domain.ErrNotFound)
	assert.ErrorIs(t, errMissing, domain.ErrNotFound)
	assert.Equal(t, entity.StatusDraft, f.doc("doc-1").Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// GenerateXml
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerateXml_BorradorPasaAPendienteFirma(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))

	res, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	d := f.doc("doc-1")
	assert.Equal(t, entity.StatusPendingSignature, d.Status)
	assert.True(t, domainsri.IsValid(d.AccessKey))
	assert.Equal(t, "150120240117921467390011001001000000001", d.AccessKey[:39])
	ok, _ := f.store.Exists(context.Background(), d.XMLPath)
	assert.True(t, ok, "el XML debe existir en el almacenamiento antes de referenciarse")
	assert.NotNil(t, d.XMLGeneratedAt)
	assert.Equal(t, []recordedMetric{{entity.OperationGenerateXML, billing.OutcomeSuccess}}, f.metrics.seen)
}

func TestGenerateXml_SinConfiguracion(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	delete(f.configs.cfgs, tenantA)

	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
	assert.Zero(t, f.builder.calls)
}

func TestGenerateXml_PuntoDeEmisionInexistente(t *testing.T) {
	f := newFixture(t)
	inv := newInvoice("doc-1", entity.StatusDraft)
	inv.EmissionPointID = "pt-x"
	f.add(t, inv)

	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestGenerateXml_EstadoAutorizadoNoPermitido(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusAuthorized))

	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "AUTHORIZED")
	assert.Zero(t, f.builder.calls)
}

func TestGenerateXml_ClaveDistintaNoSobrescribe(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)
	original := f.doc("doc-1").AccessKey

	f.builder.forceKey = "1501202401179214673900110010010000000010000000012"
	_, err = f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Equal(t, original, f.doc("doc-1").AccessKey)
}

func TestGenerateXml_RegenerarDesdePendienteAutorizacionNoRetrocede(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	key := f.doc("doc-1").AccessKey

	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)

	d := f.doc("doc-1")
	assert.Equal(t, entity.StatusPendingAuthorization, d.Status)
	assert.Equal(t, key, d.AccessKey, "la clave de acceso es inmutable")
	assert.Empty(t, d.SignedXMLPath, "la firma anterior queda invalidada")

	_, err = f.orch.SubmitToSri(context.Background(), tenantA, "doc-1")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Zero(t, f.client.submitCalls)
}

func TestGenerateXml_AsignaSecuencialPendiente(t *testing.T) {
	f := newFixture(t)
	inv := newInvoice("doc-1", entity.StatusDraft)
	inv.Sequential = 0
	f.add(t, inv)

	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)

	d := f.doc("doc-1")
	assert.Equal(t, int64(2), d.Sequential)
	assert.Equal(t, "000000002", d.AccessKey[30:39])
}

// ──────────────────────────────────────────────────────────────────────────────
// SignXml
// ──────────────────────────────────────────────────────────────────────────────

func TestSignXml_PasaAPendienteAutorizacion(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)

	res, err := f.orch.SignXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	d := f.doc("doc-1")
	assert.Equal(t, entity.StatusPendingAuthorization, d.Status)
	assert.NotEmpty(t, d.SignedXMLPath)
	assert.Equal(t, 1, f.signer.calls)

	// El buffer entregado al firmador se borra; la configuración conserva sus bytes.
	assert.Equal(t, []byte{0, 0, 0, 0}, f.signer.lastCert)
	assert.Equal(t, []byte{1, 2, 3, 4}, f.configs.cfgs[tenantA].CertificateData)
}

func TestSignXml_CertificadoVencidoAyer(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)

	yesterday := f.start.AddDate(0, 0, -1)
	f.configs.cfgs[tenantA].CertificateExpiresAt = &yesterday

	_, err = f.orch.SignXml(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrCertificateExpired)
	assert.Zero(t, f.signer.calls, "no debe intentarse la firma")
	assert.Equal(t, entity.StatusPendingSignature, f.doc("doc-1").Status)
}

func TestSignXml_SinCertificadoOContrasena(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)

	f.configs.cfgs[tenantA].CertificatePassword = ""
	_, err = f.orch.SignXml(context.Background(), tenantA, "doc-1")
	assert.ErrorIs(t, err, domain.ErrCertificateMissing)
	assert.Zero(t, f.signer.calls)
}

func TestSignXml_SinArchivoXML(t *testing.T) {
	f := newFixture(t)
	inv := newInvoice("doc-1", entity.StatusPendingSignature)
	inv.XMLPath = "tenant-a/01/inexistente.xml"
	f.add(t, inv)

	_, err := f.orch.SignXml(context.Background(), tenantA, "doc-1")
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
	assert.Zero(t, f.signer.calls)
}

func TestSignXml_BorradorNoSeFirma(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))

	_, err := f.orch.SignXml(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "DRAFT")
}

func TestSignXml_ErrorDelFirmadorQuedaEnLog(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	_, err := f.orch.GenerateXml(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)

	f.signer.err = errors.New("contraseña incorrecta")
	_, err = f.orch.SignXml(context.Background(), tenantA, "doc-1")
	require.Error(t, err)
	require.Len(t, f.errs.entries, 1)
	assert.Equal(t, "SIGN_ERROR", f.errs.entries[0].ErrorCode)
	assert.NotContains(t, f.errs.entries[0].Message, "clave-p12")
}

// ──────────────────────────────────────────────────────────────────────────────
// SubmitToSri
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmitToSri_BorradorFallaConEstadoActual(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))

	_, err := f.orch.SubmitToSri(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "DRAFT")
	assert.Zero(t, f.client.submitCalls)
}

func TestSubmitToSri_Recibida(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")

	res, err := f.orch.SubmitToSri(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, f.client.submitCalls)
	assert.Equal(t, entity.StatusPendingAuthorization, f.doc("doc-1").Status)
	assert.Empty(t, f.errs.entries)
}

func TestSubmitToSri_RechazadoMuestraErroresPrevios(t *testing.T) {
	f := newFixture(t)
	inv := newInvoice("doc-1", entity.StatusRejected)
	inv.SignedXMLPath = "tenant-a/01/x_firmado.xml"
	f.add(t, inv)
	f.errs.entries = []*entity.SRIErrorLog{
		{ID: "e1", TenantID: tenantA, DocumentID: "doc-1", ErrorCode: "43", Message: "CLAVE ACCESO REGISTRADA"},
		{ID: "e2", TenantID: tenantA, DocumentID: "doc-1", ErrorCode: "65", Message: "FECHA EMISION EXTEMPORANEA"},
		{ID: "e3", TenantID: tenantA, DocumentID: "otro", ErrorCode: "99", Message: "NO DEBE APARECER"},
	}

	_, err := f.orch.SubmitToSri(context.Background(), tenantA, "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	var prior *domain.PriorRejectionError
	require.True(t, errors.As(err, &prior))
	assert.Len(t, prior.Messages, 2)
	assert.Contains(t, err.Error(), "[43] CLAVE ACCESO REGISTRADA")
	assert.Contains(t, err.Error(), "[65] FECHA EMISION EXTEMPORANEA")
	assert.NotContains(t, err.Error(), "NO DEBE APARECER")
	assert.Zero(t, f.client.submitCalls, "no debe intentarse el envío")
	assert.Equal(t, []recordedMetric{{entity.OperationSubmitToSRI, billing.OutcomeRejected}}, f.metrics.seen)
}

func TestSubmitToSri_DevueltaRegistraCadaMensaje(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	f.client.submitFn = func() (*domainsri.SubmissionResult, error) {
		return &domainsri.SubmissionResult{
			Status: "DEVUELTA",
			Errors: []domain.SRIMessage{
				{Code: "35", Message: "ARCHIVO NO CUMPLE ESTRUCTURA XML", Info: "linea 3", Type: "ERROR"},
				{Code: "39", Message: "FIRMA INVALIDA", Type: "ERROR"},
			},
		}, nil
	}

	_, err := f.orch.SubmitToSri(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrRemoteSubmissionFailed)

	var rre *domain.RemoteRejectionError
	require.True(t, errors.As(err, &rre))
	assert.Equal(t, "DEVUELTA", rre.Status)
	assert.Contains(t, err.Error(), "[35] ARCHIVO NO CUMPLE ESTRUCTURA XML (linea 3)")
	assert.Contains(t, err.Error(), "[39] FIRMA INVALIDA")

	require.Len(t, f.errs.entries, 2)
	assert.Equal(t, "35", f.errs.entries[0].ErrorCode)
	assert.Equal(t, "linea 3", f.errs.entries[0].AdditionalInfo)
	assert.Equal(t, entity.OperationSubmitToSRI, f.errs.entries[1].Operation)
	assert.Equal(t, entity.StatusPendingAuthorization, f.doc("doc-1").Status, "el estado no cambia")
}

func TestSubmitToSri_ErrorDeTransporte(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	f.client.submitFn = func() (*domainsri.SubmissionResult, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	_, err := f.orch.SubmitToSri(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrUnexpectedFailure)
	assert.NotContains(t, err.Error(), "connection refused", "el detalle no se expone al llamador")

	require.Len(t, f.errs.entries, 1)
	assert.Equal(t, entity.ErrorCodeSOAP, f.errs.entries[0].ErrorCode)
	assert.Contains(t, f.errs.entries[0].Message, "connection refused")
	assert.Equal(t, entity.StatusPendingAuthorization, f.doc("doc-1").Status)
}

func TestSubmitToSri_PanicDelClienteSeConvierteEnFallo(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	f.client.submitFn = func() (*domainsri.SubmissionResult, error) { panic("respuesta corrupta") }

	_, err := f.orch.SubmitToSri(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrUnexpectedFailure)
	require.Len(t, f.errs.entries, 1)
	assert.Equal(t, entity.ErrorCodeSOAP, f.errs.entries[0].ErrorCode)
}

func TestSubmitToSri_FalloDelLogNoOcultaElError(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	f.errs.failAdd = true
	f.client.submitFn = func() (*domainsri.SubmissionResult, error) { return nil, errors.New("timeout") }

	_, err := f.orch.SubmitToSri(context.Background(), tenantA, "doc-1")
	assert.ErrorIs(t, err, domain.ErrUnexpectedFailure)
}

// ──────────────────────────────────────────────────────────────────────────────
// CheckAuthorization
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckAuthorization_Autorizado(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")

	res, err := f.orch.CheckAuthorization(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	d := f.doc("doc-1")
	assert.Equal(t, entity.StatusAuthorized, d.Status)
	assert.Equal(t, d.AccessKey, d.AuthorizationNumber)
	require.NotNil(t, d.AuthorizedAt)
	stored, err := f.store.Load(context.Background(), d.SignedXMLPath)
	require.NoError(t, err)
	assert.Equal(t, "<autorizado/>", string(stored))
}

func TestCheckAuthorization_RegeneradoTrasEnvioGuardaXMLAutorizado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	_, err := f.orch.SubmitToSri(ctx, tenantA, "doc-1")
	require.NoError(t, err)
	_, err = f.orch.GenerateXml(ctx, tenantA, "doc-1")
	require.NoError(t, err)
	require.Empty(t, f.doc("doc-1").SignedXMLPath)

	_, err = f.orch.CheckAuthorization(ctx, tenantA, "doc-1")
	require.NoError(t, err)

	d := f.doc("doc-1")
	assert.Equal(t, entity.StatusAuthorized, d.Status)
	require.NotEmpty(t, d.SignedXMLPath)
	stored, err := f.store.Load(ctx, d.SignedXMLPath)
	require.NoError(t, err)
	assert.Equal(t, "<autorizado/>", string(stored))
}

func TestCheckAuthorization_NoAutorizadoPasaARechazado(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	f.client.authFn = func() (*domainsri.AuthorizationResult, error) {
		return &domainsri.AuthorizationResult{
			Status: "NO AUTORIZADO",
			Errors: []domain.SRIMessage{{Code: "56", Message: "ESTABLECIMIENTO CERRADO"}},
		}, nil
	}

	_, err := f.orch.CheckAuthorization(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrRemoteSubmissionFailed)

	d := f.doc("doc-1")
	assert.Equal(t, entity.StatusRejected, d.Status)
	assert.NotNil(t, d.RejectedAt)
	require.Len(t, f.errs.entries, 1)
	assert.Equal(t, entity.OperationCheckAuthorization, f.errs.entries[0].Operation)
}

func TestCheckAuthorization_EnProcesoNoCambiaEstado(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	f.client.authFn = func() (*domainsri.AuthorizationResult, error) {
		return &domainsri.AuthorizationResult{Status: "EN PROCESO"}, nil
	}

	res, err := f.orch.CheckAuthorization(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "EN PROCESO")
	assert.Equal(t, entity.StatusPendingAuthorization, f.doc("doc-1").Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de reenvío después de un rechazo
// ──────────────────────────────────────────────────────────────────────────────

func TestRechazo_CicloCompletoDeReenvio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	key := f.doc("doc-1").AccessKey

	f.client.authFn = func() (*domainsri.AuthorizationResult, error) {
		return &domainsri.AuthorizationResult{Status: "RECHAZADA", Errors: []domain.SRIMessage{{Code: "45", Message: "SECUENCIAL REGISTRADO"}}}, nil
	}
	_, err := f.orch.CheckAuthorization(ctx, tenantA, "doc-1")
	require.Error(t, err)
	require.Equal(t, entity.StatusRejected, f.doc("doc-1").Status)

	// Firmar de nuevo sin regenerar no está permitido.
	_, err = f.orch.SignXml(ctx, tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)

	// Reenviar muestra los errores previos.
	_, err = f.orch.SubmitToSri(ctx, tenantA, "doc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[45] SECUENCIAL REGISTRADO")

	// Regenerar inicia el ciclo nuevo: el estado sigue en REJECTED con la misma clave.
	_, err = f.orch.GenerateXml(ctx, tenantA, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, f.doc("doc-1").Status)
	assert.Equal(t, key, f.doc("doc-1").AccessKey)

	// La firma completa la transición REJECTED → PENDING_AUTHORIZATION.
	_, err = f.orch.SignXml(ctx, tenantA, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingAuthorization, f.doc("doc-1").Status)

	_, err = f.orch.SubmitToSri(ctx, tenantA, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.client.submitCalls)

	// El log de errores nunca se borra.
	entries, err := f.orch.ListErrors(ctx, tenantA, "doc-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// ──────────────────────────────────────────────────────────────────────────────
// GenerateRide
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerateRide_RequiereAutorizado(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")

	_, err := f.orch.GenerateRide(context.Background(), tenantA, "doc-1")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Zero(t, f.ride.calls)
}

func TestGenerateRide_GuardaRuta(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	f.toPendingAuthorization(t, "doc-1")
	_, err := f.orch.CheckAuthorization(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)

	res, err := f.orch.GenerateRide(context.Background(), tenantA, "doc-1")
	require.NoError(t, err)
	assert.True(t, res.Document.HasRide)

	d := f.doc("doc-1")
	pdf, err := f.store.Load(context.Background(), d.RidePath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 ride", string(pdf))
}

func TestGenerateRide_SinNumeroDeAutorizacion(t *testing.T) {
	f := newFixture(t)
	inv := newInvoice("doc-1", entity.StatusAuthorized)
	inv.AccessKey = "1501202401179214673900110010010000000011234567810"
	f.add(t, inv)

	_, err := f.orch.GenerateRide(context.Background(), tenantA, "doc-1")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerateXml_ContextoCanceladoNoPersiste(t *testing.T) {
	f := newFixture(t)
	f.add(t, newInvoice("doc-1", entity.StatusDraft))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orch.GenerateXml(ctx, tenantA, "doc-1")
	require.ErrorIs(t, err, context.Canceled)

	d := f.doc("doc-1")
	assert.Equal(t, entity.StatusDraft, d.Status)
	assert.Empty(t, d.XMLPath)
	assert.Empty(t, d.AccessKey)
}
