package model

// Status is the bidder outcome recovered from a procurement result.
type Status string

const (
	StatusDisqualified      Status = "Disqualified"
	StatusIneligible        Status = "Ineligible"
	StatusAwarded           Status = "Awarded"
	StatusHomologatedWinner Status = "HomologatedWinner"
	StatusUnknown           Status = "Unknown"

	// StatusExtractionFailed marks the sentinel record emitted when the
	// generative reply could not be decoded.
	StatusExtractionFailed Status = "ExtractionFailed"
)

// TargetStatuses are the statuses that produce leads.
func TargetStatuses() []Status {
	return []Status{StatusDisqualified, StatusIneligible}
}

// ExcludedStatuses are the statuses that must never surface as leads.
func ExcludedStatuses() []Status {
	return []Status{StatusAwarded, StatusHomologatedWinner}
}

// Excluded reports whether records with this status must be dropped.
func (s Status) Excluded() bool {
	return s == StatusAwarded || s == StatusHomologatedWinner
}

// ExtractionRecord is one bidder recovered by the structured extractor.
type ExtractionRecord struct {
	CompanyName   string `json:"companyName"`
	TaxID         string `json:"taxId,omitempty"`
	Status        Status `json:"status"`
	StatusText    string `json:"statusText,omitempty"`
	LossReason    string `json:"lossReason,omitempty"`
	TenderObject  string `json:"tenderObject,omitempty"`
	IssuingBody   string `json:"issuingBody,omitempty"`
	Modality      string `json:"modality,omitempty"`
	ProcessNumber string `json:"processNumber,omitempty"`

	// Message is set only on the StatusExtractionFailed sentinel.
	Message string `json:"message,omitempty"`
}

// IsSentinel reports whether r is the decode-failure marker.
func (r ExtractionRecord) IsSentinel() bool {
	return r.Status == StatusExtractionFailed
}

// HasTaxID reports whether the record carries an identifier worth looking up.
func (r ExtractionRecord) HasTaxID() bool {
	return r.TaxID != ""
}
