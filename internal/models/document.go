// Package models - Document payloads accepted by the registry API.
// Field names follow the registry's wire format verbatim, which mixes
// snake_case and camelCase keys.
package models

// Document is the payload of a document creation request.
type Document struct {
	Description    *Description `json:"description"`
	DocID          string       `json:"doc_id"`
	DocStatus      string       `json:"doc_status"`
	DocType        string       `json:"doc_type"`
	ImportRequest  bool         `json:"importRequest"`
	OwnerINN       string       `json:"owner_inn"`
	ParticipantINN string       `json:"participant_inn"`
	ProducerINN    string       `json:"producer_inn"`
	ProductionDate string       `json:"production_date"`
	ProductionType string       `json:"production_type"`
	Products       []Product    `json:"products"`
	RegDate        string       `json:"reg_date"`
	RegNumber      string       `json:"reg_number"`
}

// Description identifies the participant filing the document.
type Description struct {
	ParticipantINN string `json:"participantInn"`
}

// Product is a single article listed in a Document.
type Product struct {
	CertificateDocument       string `json:"certificate_document"`
	CertificateDocumentDate   string `json:"certificate_document_date"`
	CertificateDocumentNumber string `json:"certificate_document_number"`
	OwnerINN                  string `json:"owner_inn"`
	ProducerINN               string `json:"producer_inn"`
	ProductionDate            string `json:"production_date"`
	TNVEDCode                 string `json:"tnved_code"`
	UITCode                   string `json:"uit_code"`
	UITUCode                  string `json:"uitu_code"`
}
