package model

// RegistryStatus records what happened during registry enrichment.
type RegistryStatus string

const (
	RegistryEnriched    RegistryStatus = "enriched"
	RegistryUnavailable RegistryStatus = "unavailable"
	RegistrySkipped     RegistryStatus = "skipped"
)

// Unavailable is the explicit marker for enrichment fields that could not be
// filled.
const Unavailable = "unavailable"

// DecisionMakerNotFound marks an enriched entity with no listed partners.
const DecisionMakerNotFound = "not found"

// Lead is the pipeline output: an extraction record merged with registry data
// and tagged with the Reference it came from.
type Lead struct {
	CompanyName   string `json:"companyName"`
	TaxID         string `json:"taxId,omitempty"`
	Status        Status `json:"status"`
	StatusText    string `json:"statusText,omitempty"`
	LossReason    string `json:"lossReason,omitempty"`
	TenderObject  string `json:"tenderObject,omitempty"`
	IssuingBody   string `json:"issuingBody,omitempty"`
	Modality      string `json:"modality,omitempty"`
	ProcessNumber string `json:"processNumber,omitempty"`
	Message       string `json:"message,omitempty"`

	LegalName        string         `json:"legalName"`
	PrimaryActivity  string         `json:"primaryActivity"`
	Region           string         `json:"region"`
	DecisionMaker    string         `json:"decisionMaker"`
	ContactSearchURL string         `json:"contactSearchUrl"`
	RegisteredPhone  string         `json:"registeredPhone"`
	PhoneFormatValid bool           `json:"phoneFormatValid"`
	RegistryStatus   RegistryStatus `json:"registryStatus"`

	Provenance Reference `json:"provenance"`
}

// NewPartialLead copies the extracted fields of r and marks every enrichment
// field unavailable.
func NewPartialLead(r ExtractionRecord, status RegistryStatus) Lead {
	return Lead{
		CompanyName:      r.CompanyName,
		TaxID:            r.TaxID,
		Status:           r.Status,
		StatusText:       r.StatusText,
		LossReason:       r.LossReason,
		TenderObject:     r.TenderObject,
		IssuingBody:      r.IssuingBody,
		Modality:         r.Modality,
		ProcessNumber:    r.ProcessNumber,
		Message:          r.Message,
		LegalName:        Unavailable,
		PrimaryActivity:  Unavailable,
		Region:           Unavailable,
		DecisionMaker:    Unavailable,
		ContactSearchURL: Unavailable,
		RegisteredPhone:  Unavailable,
		RegistryStatus:   status,
	}
}
