// Package sri: generación y validación de la clave de acceso de 49 dígitos
// (Ficha Técnica de Comprobantes Electrónicos, esquema offline) y máquina de
// estados del comprobante electrónico.

package sri

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// AccessKeyLength longitud total de la clave de acceso (48 dígitos + verificador).
const AccessKeyLength = 49

// factores del módulo 11, aplicados desde el dígito más a la izquierda.
var checkWeights = [6]int{7, 6, 5, 4, 3, 2}

// FillerSource produce el código numérico de 8 dígitos de la clave.
type FillerSource func() (string, error)

// AccessKeyParams datos que componen la clave de acceso.
type AccessKeyParams struct {
	IssueDate         time.Time
	DocumentType      string // codDoc, 2 dígitos
	RUC               string // 13 dígitos
	Environment       string // 1 pruebas, 2 producción
	EstablishmentCode string // 3 dígitos
	EmissionPointCode string // 3 dígitos
	Sequential        int64  // 1..999999999
	EmissionType      string // vacío = normal ("1")
}

// AccessKey clave de acceso validada.
type AccessKey struct {
	value string
}

// Value devuelve los 49 dígitos.
func (k AccessKey) Value() string { return k.value }

func (k AccessKey) String() string { return k.value }

// AccessKeyParts campos decodificados de una clave de acceso.
type AccessKeyParts struct {
	IssueDate         time.Time
	DocumentType      string
	RUC               string
	Environment       string
	EstablishmentCode string
	EmissionPointCode string
	Sequential        int64
	NumericCode       string
	EmissionType      string
	CheckDigit        int
}

// Parts decodifica la clave. La clave ya fue validada al construirse.
func (k AccessKey) Parts() AccessKeyParts {
	v := k.value
	date, _ := time.Parse("02012006", v[0:8])
	var seq int64
	for _, c := range v[30:39] {
		seq = seq*10 + int64(c-'0')
	}
	return AccessKeyParts{
		IssueDate:         date,
		DocumentType:      v[8:10],
		RUC:               v[10:23],
		Environment:       v[23:24],
		EstablishmentCode: v[24:27],
		EmissionPointCode: v[27:30],
		Sequential:        seq,
		NumericCode:       v[39:47],
		EmissionType:      v[47:48],
		CheckDigit:        int(v[48] - '0'),
	}
}

// AccessKeyGenerator construye claves de acceso. Es puro salvo por el código numérico aleatorio.
type AccessKeyGenerator struct {
	filler FillerSource
}

// NewAccessKeyGenerator crea el generador con código numérico aleatorio (crypto/rand).
func NewAccessKeyGenerator() *AccessKeyGenerator {
	return &AccessKeyGenerator{filler: randomFiller}
}

// NewAccessKeyGeneratorWithFiller permite fijar el código numérico (tests, reprocesos).
func NewAccessKeyGeneratorWithFiller(f FillerSource) *AccessKeyGenerator {
	if f == nil {
		f = randomFiller
	}
	return &AccessKeyGenerator{filler: f}
}

// Generate arma la clave: ddMMyyyy + codDoc + RUC + ambiente + estab + ptoEmi +
// secuencial(9) + código numérico(8) + tipo de emisión + dígito verificador (módulo 11).
func (g *AccessKeyGenerator) Generate(p AccessKeyParams) (AccessKey, error) {
	if err := validateParams(&p); err != nil {
		return AccessKey{}, err
	}
	filler, err := g.filler()
	if err != nil {
		return AccessKey{}, fmt.Errorf("%w: código numérico: %v", domain.ErrInvalidArgument, err)
	}
	if len(filler) != 8 || !pkgsri.IsNumeric(filler) {
		return AccessKey{}, fmt.Errorf("%w: el código numérico debe tener 8 dígitos", domain.ErrInvalidArgument)
	}

	base := p.IssueDate.Format("02012006") +
		p.DocumentType +
		p.RUC +
		p.Environment +
		p.EstablishmentCode +
		p.EmissionPointCode +
		fmt.Sprintf("%09d", p.Sequential) +
		filler +
		p.EmissionType

	return AccessKey{value: base + string(rune('0'+CheckDigit(base)))}, nil
}

func validateParams(p *AccessKeyParams) error {
	if p.EmissionType == "" {
		p.EmissionType = pkgsri.EmissionTypeNormal
	}
	switch {
	case p.IssueDate.IsZero():
		return fmt.Errorf("%w: la fecha de emisión es obligatoria", domain.ErrInvalidArgument)
	case len(p.DocumentType) != 2 || !pkgsri.IsNumeric(p.DocumentType):
		return fmt.Errorf("%w: tipo de comprobante %q debe tener 2 dígitos", domain.ErrInvalidArgument, p.DocumentType)
	case len(p.RUC) != 13 || !pkgsri.IsNumeric(p.RUC):
		return fmt.Errorf("%w: el RUC debe tener exactamente 13 dígitos", domain.ErrInvalidArgument)
	case len(p.Environment) != 1 || !pkgsri.IsNumeric(p.Environment):
		return fmt.Errorf("%w: ambiente %q inválido", domain.ErrInvalidArgument, p.Environment)
	case len(p.EstablishmentCode) != 3 || !pkgsri.IsNumeric(p.EstablishmentCode):
		return fmt.Errorf("%w: el establecimiento debe tener 3 dígitos", domain.ErrInvalidArgument)
	case len(p.EmissionPointCode) != 3 || !pkgsri.IsNumeric(p.EmissionPointCode):
		return fmt.Errorf("%w: el punto de emisión debe tener 3 dígitos", domain.ErrInvalidArgument)
	case p.Sequential < 1 || p.Sequential > 999_999_999:
		return fmt.Errorf("%w: secuencial %d fuera de rango (1-999999999)", domain.ErrInvalidArgument, p.Sequential)
	case len(p.EmissionType) != 1 || !pkgsri.IsNumeric(p.EmissionType):
		return fmt.Errorf("%w: tipo de emisión %q inválido", domain.ErrInvalidArgument, p.EmissionType)
	}
	return nil
}

// CheckDigit calcula el dígito verificador módulo 11 sobre una cadena de dígitos.
// 11 − (suma mod 11); 11 → 0 y 10 → 1.
func CheckDigit(digits string) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * checkWeights[i%len(checkWeights)]
	}
	d := 11 - sum%11
	switch d {
	case 11:
		return 0
	case 10:
		return 1
	}
	return d
}

// FromString reconstruye una clave recibida de fuera (SRI, cliente) y la valida.
func FromString(value string) (AccessKey, error) {
	if len(value) != AccessKeyLength {
		return AccessKey{}, fmt.Errorf("%w: longitud %d, se esperaban %d dígitos", domain.ErrInvalidAccessKey, len(value), AccessKeyLength)
	}
	if !pkgsri.IsNumeric(value) {
		return AccessKey{}, fmt.Errorf("%w: contiene caracteres no numéricos", domain.ErrInvalidAccessKey)
	}
	expected := CheckDigit(value[:AccessKeyLength-1])
	if got := int(value[AccessKeyLength-1] - '0'); got != expected {
		return AccessKey{}, fmt.Errorf("%w: dígito verificador %d, se esperaba %d", domain.ErrInvalidAccessKey, got, expected)
	}
	return AccessKey{value: value}, nil
}

// IsValid forma booleana de FromString.
func IsValid(value string) bool {
	_, err := FromString(value)
	return err == nil
}

var fillerMax = big.NewInt(100_000_000)

func randomFiller() (string, error) {
	n, err := rand.Int(rand.Reader, fillerMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}
