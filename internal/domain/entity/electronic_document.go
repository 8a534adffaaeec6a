package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType código SRI del comprobante (codDoc).
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "01"
	DocumentTypeCreditNote DocumentType = "04"
	DocumentTypeDebitNote  DocumentType = "05"
	DocumentTypeRetention  DocumentType = "07"
)

// Valid indica si el tipo está soportado por el flujo SRI.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeInvoice, DocumentTypeCreditNote, DocumentTypeDebitNote, DocumentTypeRetention:
		return true
	}
	return false
}

// DocumentStatus estado del comprobante electrónico.
type DocumentStatus string

const (
	StatusDraft                DocumentStatus = "DRAFT"
	StatusPendingSignature     DocumentStatus = "PENDING_SIGNATURE"
	StatusPendingAuthorization DocumentStatus = "PENDING_AUTHORIZATION"
	StatusAuthorized           DocumentStatus = "AUTHORIZED"
	StatusRejected             DocumentStatus = "REJECTED"
	StatusSent                 DocumentStatus = "SENT"
	StatusPaid                 DocumentStatus = "PAID"
	StatusOverdue              DocumentStatus = "OVERDUE"
	StatusCancelled            DocumentStatus = "CANCELLED"
	StatusVoided               DocumentStatus = "VOIDED"
)

// Environment ambiente SRI (Tabla 4): "1" pruebas, "2" producción.
type Environment string

const (
	EnvironmentTest       Environment = "1"
	EnvironmentProduction Environment = "2"
)

// AccessKeyInputs datos del comprobante que forman parte de la clave de acceso.
// RUC, establecimiento y punto de emisión los aporta la configuración del tenant.
type AccessKeyInputs struct {
	IssueDate    time.Time
	DocumentType DocumentType
	Environment  Environment
	Sequential   int64
	ExistingKey  string
}

// SubmissionOutcome resultado de autorización aplicado al comprobante.
type SubmissionOutcome struct {
	Status              DocumentStatus
	AuthorizationNumber string
	AuthorizedAt        *time.Time
}

// SRIDocument capacidad común de todos los comprobantes que recorren el flujo SRI.
// La implementan Invoice, CreditNote, DebitNote y Retention a través de ElectronicDocument.
type SRIDocument interface {
	Base() *ElectronicDocument
	AccessKeyInputs() AccessKeyInputs
	ApplyXMLResult(path, accessKey string, at time.Time)
	ApplySignResult(path string, at time.Time)
	ApplySubmissionResult(outcome SubmissionOutcome, at time.Time)
}

// ElectronicDocument cabecera común de un comprobante electrónico (multi-tenant).
type ElectronicDocument struct {
	ID              string
	TenantID        string
	Type            DocumentType
	EmissionPointID string
	Sequential      int64
	IssueDate       time.Time
	Status          DocumentStatus
	Environment     Environment

	AccessKey           string // vacío hasta generar el XML; inmutable después
	XMLPath             string
	SignedXMLPath       string
	RidePath            string
	AuthorizationNumber string
	AuthorizedAt        *time.Time

	BuyerIDType  string
	BuyerID      string
	BuyerName    string
	BuyerEmail   string
	BuyerAddress string

	Subtotal decimal.Decimal
	TaxTotal decimal.Decimal
	Total    decimal.Decimal

	XMLGeneratedAt *time.Time
	RejectedAt     *time.Time
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d *ElectronicDocument) Base() *ElectronicDocument { return d }

func (d *ElectronicDocument) AccessKeyInputs() AccessKeyInputs {
	return AccessKeyInputs{
		IssueDate:    d.IssueDate,
		DocumentType: d.Type,
		Environment:  d.Environment,
		Sequential:   d.Sequential,
		ExistingKey:  d.AccessKey,
	}
}

// ApplyXMLResult registra el XML generado. Un XML nuevo invalida la firma anterior.
func (d *ElectronicDocument) ApplyXMLResult(path, accessKey string, at time.Time) {
	d.XMLPath = path
	d.AccessKey = accessKey
	d.SignedXMLPath = ""
	d.XMLGeneratedAt = &at
	d.UpdatedAt = at
}

func (d *ElectronicDocument) ApplySignResult(path string, at time.Time) {
	d.SignedXMLPath = path
	d.UpdatedAt = at
}

func (d *ElectronicDocument) ApplySubmissionResult(outcome SubmissionOutcome, at time.Time) {
	d.Status = outcome.Status
	switch outcome.Status {
	case StatusAuthorized:
		d.AuthorizationNumber = outcome.AuthorizationNumber
		d.AuthorizedAt = outcome.AuthorizedAt
	case StatusRejected:
		d.RejectedAt = &at
	}
	d.UpdatedAt = at
}

// HasFreshXMLAfterRejection indica si el XML se regeneró después del último rechazo.
func (d *ElectronicDocument) HasFreshXMLAfterRejection() bool {
	if d.RejectedAt == nil || d.XMLGeneratedAt == nil {
		return false
	}
	return d.XMLGeneratedAt.After(*d.RejectedAt)
}

// DocumentNumber número visible estab-ptoEmi-secuencial (ej. 001-001-000000123).
func DocumentNumber(establishment, emissionPoint string, sequential int64) string {
	return fmt.Sprintf("%s-%s-%09d", establishment, emissionPoint, sequential)
}
