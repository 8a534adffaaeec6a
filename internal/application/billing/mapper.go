package billing

import (
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

func toDocumentResponse(doc entity.SRIDocument) *dto.DocumentResponse {
	b := doc.Base()
	return &dto.DocumentResponse{
		ID:                  b.ID,
		Type:                string(b.Type),
		EmissionPointID:     b.EmissionPointID,
		Sequential:          b.Sequential,
		IssueDate:           b.IssueDate.Format("2006-01-02"),
		Status:              string(b.Status),
		Environment:         string(b.Environment),
		AccessKey:           b.AccessKey,
		AuthorizationNumber: b.AuthorizationNumber,
		AuthorizedAt:        b.AuthorizedAt,
		BuyerIDType:         b.BuyerIDType,
		BuyerID:             b.BuyerID,
		BuyerName:           b.BuyerName,
		Subtotal:            b.Subtotal,
		TaxTotal:            b.TaxTotal,
		Total:               b.Total,
		HasXML:              b.XMLPath != "",
		HasSignedXML:        b.SignedXMLPath != "",
		HasRide:             b.RidePath != "",
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func toErrorLogResponses(entries []*entity.SRIErrorLog) []dto.SRIErrorLogResponse {
	out := make([]dto.SRIErrorLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.SRIErrorLogResponse{
			ID:             e.ID,
			Operation:      e.Operation,
			ErrorCode:      e.ErrorCode,
			Message:        e.Message,
			AdditionalInfo: e.AdditionalInfo,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}

func toSRIMessages(entries []*entity.SRIErrorLog) []domain.SRIMessage {
	out := make([]domain.SRIMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.SRIMessage{Code: e.ErrorCode, Message: e.Message, Info: e.AdditionalInfo})
	}
	return out
}
