// seed registra un emisor: configuración SRI del tenant (RUC, datos tributarios y
// certificado .p12), un establecimiento y un punto de emisión con secuenciales en cero.
// Antes de guardar verifica que el .p12 abra con la contraseña y siga vigente.
//
// Uso:
//
//	SEED_CERT_PASSWORD=... go run ./cmd/seed -tenant <uuid> -ruc 1792146739001 \
//	    -legal-name "Comercial Andina S.A." -address "Av. Amazonas N34-451" -cert firma.p12
//
// La contraseña del .p12 se toma de SEED_CERT_PASSWORD.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/persistence"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sri/signer"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func main() {
	var in dto.IssuerSetupRequest
	var certPath string
	flag.StringVar(&in.TenantID, "tenant", "", "ID del tenant (claim tenant_id del JWT)")
	flag.StringVar(&in.RUC, "ruc", "", "RUC del emisor (13 dígitos)")
	flag.StringVar(&in.LegalName, "legal-name", "", "razón social")
	flag.StringVar(&in.TradeName, "trade-name", "", "nombre comercial")
	flag.StringVar(&in.MainAddress, "address", "", "dirección matriz")
	flag.StringVar(&in.Environment, "env", "1", "ambiente SRI: 1 pruebas, 2 producción")
	flag.BoolVar(&in.RequiredAccounting, "accounting", false, "obligado a llevar contabilidad")
	flag.StringVar(&in.SpecialTaxpayer, "special", "", "resolución de contribuyente especial")
	flag.StringVar(&in.EstablishmentCode, "est", "001", "código de establecimiento")
	flag.StringVar(&in.EstablishmentName, "est-name", "Matriz", "nombre del establecimiento")
	flag.StringVar(&in.EstablishmentAddress, "est-address", "", "dirección del establecimiento (por defecto la matriz)")
	flag.StringVar(&in.EmissionPointCode, "point", "001", "código del punto de emisión")
	flag.StringVar(&certPath, "cert", "", "ruta al certificado .p12 (opcional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed"})

	if in.EstablishmentAddress == "" {
		in.EstablishmentAddress = in.MainAddress
	}
	if certPath != "" {
		data, err := os.ReadFile(certPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", certPath).Msg("leer certificado")
		}
		in.Certificate = data
		in.CertificatePassword = os.Getenv("SEED_CERT_PASSWORD")
	}

	ctx := context.Background()
	store, err := persistence.Open(ctx, cfg.DB, log.Component("persistence"))
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a la base de datos")
	}
	defer store.Close()

	uc := billing.NewIssuerSetupUseCase(store.Configurations, store.Establishments, store.EmissionPoints,
		signer.NewDigitalSignatureService())
	res, err := uc.Setup(ctx, in)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", in.TenantID).Msg("alta del emisor")
		store.Close()
		os.Exit(1)
	}

	log.Info().
		Str("tenant_id", in.TenantID).
		Str("emission_point_id", res.EmissionPointID).
		Msg("emisor registrado")
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}
