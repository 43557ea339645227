package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/procurement-leads/internal/fold"
	"github.com/sells-group/procurement-leads/internal/model"
)

// OutcomeKind tags the result of decoding a generative reply.
type OutcomeKind int

const (
	// OutcomeEmpty means the reply said there was nothing to extract.
	OutcomeEmpty OutcomeKind = iota
	// OutcomeRecords means the reply decoded into at least one record.
	OutcomeRecords
	// OutcomeDecodeFailure means the reply was not usable JSON.
	OutcomeDecodeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmpty:
		return "empty"
	case OutcomeRecords:
		return "records"
	case OutcomeDecodeFailure:
		return "decode_failure"
	}
	return "unknown"
}

// Outcome is the decoded reply. Records is set only for OutcomeRecords; Raw
// and Err only for OutcomeDecodeFailure.
type Outcome struct {
	Kind    OutcomeKind
	Records []model.ExtractionRecord
	Raw     string
	Err     error
}

var fenceRe = regexp.MustCompile("(?i)```(?:json)?")

// noContent are replies that mean "nothing found".
var noContent = map[string]bool{
	"":       true,
	"null":   true,
	"none":   true,
	"nenhum": true,
	"[]":     true,
	"{}":     true,
}

// Decode interprets a generative reply using the embedded vocabulary.
func Decode(reply string) Outcome {
	return DecodeWith(reply, DefaultVocabulary())
}

// DecodeWith interprets a generative reply. It never returns an error: a
// reply that cannot be parsed becomes OutcomeDecodeFailure.
func DecodeWith(reply string, vocab *Vocabulary) Outcome {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(reply, ""))
	if noContent[strings.ToLower(strings.Trim(cleaned, `"'.`))] {
		return Outcome{Kind: OutcomeEmpty}
	}

	start := strings.IndexAny(cleaned, "[{")
	if start < 0 {
		return failure(reply, eris.New("extract: no JSON value in reply"))
	}

	dec := json.NewDecoder(strings.NewReader(cleaned[start:]))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return failure(reply, eris.Wrap(err, "extract: decode reply"))
	}

	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	}

	records := make([]model.ExtractionRecord, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		rec, ok := toRecord(obj, vocab)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return Outcome{Kind: OutcomeEmpty}
	}
	return Outcome{Kind: OutcomeRecords, Records: records}
}

func failure(raw string, err error) Outcome {
	return Outcome{Kind: OutcomeDecodeFailure, Raw: raw, Err: err}
}

type recordField int

const (
	fieldCompanyName recordField = iota
	fieldTaxID
	fieldStatus
	fieldLossReason
	fieldTenderObject
	fieldIssuingBody
	fieldModality
	fieldProcessNumber
)

// keyAliases maps folded, space-free keys to record fields. Replies follow
// the English schema but Portuguese keys show up often enough to accept.
var keyAliases = map[string]recordField{
	"companyname":      fieldCompanyName,
	"company":          fieldCompanyName,
	"name":             fieldCompanyName,
	"razaosocial":      fieldCompanyName,
	"empresa":          fieldCompanyName,
	"nomeempresa":      fieldCompanyName,
	"taxid":            fieldTaxID,
	"cnpj":             fieldTaxID,
	"status":           fieldStatus,
	"situacao":         fieldStatus,
	"lossreason":       fieldLossReason,
	"reason":           fieldLossReason,
	"motivodaperda":    fieldLossReason,
	"motivo":           fieldLossReason,
	"tenderobject":     fieldTenderObject,
	"objeto":           fieldTenderObject,
	"issuingbody":      fieldIssuingBody,
	"orgao":            fieldIssuingBody,
	"modality":         fieldModality,
	"modalidade":       fieldModality,
	"processnumber":    fieldProcessNumber,
	"numeroprocesso":   fieldProcessNumber,
	"numerodoprocesso": fieldProcessNumber,
	"processo":         fieldProcessNumber,
}

func toRecord(obj map[string]any, vocab *Vocabulary) (model.ExtractionRecord, bool) {
	var rec model.ExtractionRecord
	for k, v := range obj {
		f, ok := keyAliases[strings.ReplaceAll(fold.Key(k), " ", "")]
		if !ok {
			continue
		}
		s := scalar(v)
		switch f {
		case fieldCompanyName:
			rec.CompanyName = s
		case fieldTaxID:
			rec.TaxID = s
		case fieldStatus:
			rec.StatusText = s
		case fieldLossReason:
			rec.LossReason = s
		case fieldTenderObject:
			rec.TenderObject = s
		case fieldIssuingBody:
			rec.IssuingBody = s
		case fieldModality:
			rec.Modality = s
		case fieldProcessNumber:
			rec.ProcessNumber = s
		}
	}
	if rec.CompanyName == "" && rec.TaxID == "" {
		return rec, false
	}
	rec.Status = vocab.Parse(rec.StatusText)
	return rec, true
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := scalar(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// compactJSON is used to keep logged replies on one line.
func compactJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	return buf.String()
}
