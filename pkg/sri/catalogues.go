// Package sri contiene catálogos y validaciones de la Ficha Técnica de
// Comprobantes Electrónicos del SRI (Ecuador), esquema offline.
package sri

// =============================================================================
// Tabla 3 - Tipos de comprobante (codDoc)
// =============================================================================

const (
	DocTypeFactura         = "01"
	DocTypeNotaCredito     = "04"
	DocTypeNotaDebito      = "05"
	DocTypeGuiaRemision    = "06"
	DocTypeRetencion       = "07"
	DocTypeLiquidacionComp = "03"
)

// DocumentTypeNames nombre legible usado en el RIDE.
var DocumentTypeNames = map[string]string{
	DocTypeFactura:         "FACTURA",
	DocTypeNotaCredito:     "NOTA DE CRÉDITO",
	DocTypeNotaDebito:      "NOTA DE DÉBITO",
	DocTypeGuiaRemision:    "GUÍA DE REMISIÓN",
	DocTypeRetencion:       "COMPROBANTE DE RETENCIÓN",
	DocTypeLiquidacionComp: "LIQUIDACIÓN DE COMPRA",
}

// =============================================================================
// Tabla 4 - Tipo de ambiente / Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EnvironmentTest       = "1" // Pruebas
	EnvironmentProduction = "2" // Producción

	EmissionTypeNormal = "1"
)

// EnvironmentNames valor del elemento <ambiente> en la respuesta de autorización.
var EnvironmentNames = map[string]string{
	EnvironmentTest:       "PRUEBAS",
	EnvironmentProduction: "PRODUCCIÓN",
}

// =============================================================================
// Tabla 6 - Tipo de identificación del comprador
// =============================================================================

const (
	IDTypeRUC             = "04"
	IDTypeCedula          = "05"
	IDTypePasaporte       = "06"
	IDTypeConsumidorFinal = "07"
	IDTypeExterior        = "08"
)

// ValidBuyerIDTypes tipos de identificación aceptados en infoFactura.
var ValidBuyerIDTypes = map[string]bool{
	IDTypeRUC: true, IDTypeCedula: true, IDTypePasaporte: true,
	IDTypeConsumidorFinal: true, IDTypeExterior: true,
}

// ConsumidorFinalID identificación fija para ventas a consumidor final.
const ConsumidorFinalID = "9999999999999"

// =============================================================================
// Tabla 16 - Impuestos (codigo) / Tabla 17 - Tarifas de IVA (codigoPorcentaje)
// =============================================================================

const (
	TaxCodeIVA    = "2"
	TaxCodeICE    = "3"
	TaxCodeIRBPNR = "5"
)

// IVA: código de porcentaje → tarifa en %.
const (
	IVARate0        = "0"
	IVARate12       = "2"
	IVARate14       = "3"
	IVARate15       = "4"
	IVARate5        = "5"
	IVANoObjeto     = "6"
	IVAExento       = "7"
	IVADiferenciado = "8"
	IVARate13       = "10"
)

// IVARates tarifa porcentual asociada a cada codigoPorcentaje de IVA.
var IVARates = map[string]int{
	IVARate0:        0,
	IVARate12:       12,
	IVARate14:       14,
	IVARate15:       15,
	IVARate5:        5,
	IVANoObjeto:     0,
	IVAExento:       0,
	IVADiferenciado: 8,
	IVARate13:       13,
}

// =============================================================================
// Tabla 24 - Formas de pago (uso frecuente)
// =============================================================================

const (
	PaymentSinSistemaFinanciero = "01"
	PaymentDebitoCuenta         = "16"
	PaymentTarjetaCredito       = "19"
	PaymentOtrosSistemaFin      = "20"
)

// =============================================================================
// Tabla 19 - Impuestos a retener
// =============================================================================

const (
	RetentionTaxRenta = "1"
	RetentionTaxIVA   = "2"
	RetentionTaxISD   = "6"
)

// =============================================================================
// Estados de los web services de recepción y autorización
// =============================================================================

const (
	ReceptionReceived = "RECIBIDA"
	ReceptionReturned = "DEVUELTA"

	AuthorizationAuthorized    = "AUTORIZADO"
	AuthorizationNotAuthorized = "NO AUTORIZADO"
	AuthorizationRejected      = "RECHAZADA"
	AuthorizationInProcess     = "EN PROCESO"
)
