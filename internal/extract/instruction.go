package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/procurement-leads/internal/model"
)

// InstructionVersion identifies the instruction template. Bump it whenever
// the wording or schema changes so logged replies can be traced back.
const InstructionVersion = "bidder-status/v3"

// Mode tells the instruction what shape the text has.
type Mode int

const (
	// FullText is plain text from a page, document or pasted blob.
	FullText Mode = iota
	// HTMLBlocks is markup captured from result-page fragments.
	HTMLBlocks
)

func (m Mode) String() string {
	if m == HTMLBlocks {
		return "html-blocks"
	}
	return "full-text"
}

// SchemaField is one key of the requested JSON objects.
type SchemaField struct {
	Key         string
	Description string
	Required    bool
}

// RecordSchema lists the keys every returned object may carry.
var RecordSchema = []SchemaField{
	{Key: "companyName", Description: "legal or trade name of the bidding company (razão social)", Required: true},
	{Key: "taxId", Description: "CNPJ exactly as written, or empty string if absent"},
	{Key: "status", Description: "the bidder's status phrase as written in the text", Required: true},
	{Key: "lossReason", Description: "short summary of why the bid was rejected"},
	{Key: "tenderObject", Description: "what is being procured"},
	{Key: "issuingBody", Description: "the public body running the tender (órgão)"},
	{Key: "modality", Description: "tender modality, e.g. Pregão Eletrônico, Concorrência"},
	{Key: "processNumber", Description: "tender or process number"},
}

// InstructionParams parameterizes the extraction instruction.
type InstructionParams struct {
	Targets           []model.Status
	Excluded          []model.Status
	ExplicitExclusion bool
	Mode              Mode
	Schema            []SchemaField
	Vocabulary        *Vocabulary
}

// DefaultInstructionParams targets disqualified and ineligible bidders and
// names awarded ones as excluded.
func DefaultInstructionParams(mode Mode) InstructionParams {
	return InstructionParams{
		Targets:           model.TargetStatuses(),
		Excluded:          model.ExcludedStatuses(),
		ExplicitExclusion: true,
		Mode:              mode,
		Schema:            RecordSchema,
		Vocabulary:        DefaultVocabulary(),
	}
}

// Instruction is a rendered extraction instruction.
type Instruction struct {
	Version string
	System  string
}

const systemPreamble = `You are an expert analyst of Brazilian public procurement results (licitações, pregões, atas de sessão pública).
The text you will receive was extracted from %s.
Your task is to find EVERY bidding company whose status is one of: %s.`

const exclusionClause = `Companies whose status is %s must NOT be returned, even if they were disqualified from another lot. Treat them as "no record".`

const outputRules = `Rules:
- Answer ONLY from the provided text. Do not invent companies or identifiers.
- Return a JSON array of objects with these keys:
%s- Use an empty string for keys whose value is not in the text.
- If no company matches, return an empty array [].
- Return only JSON, with no commentary.`

// BuildInstruction renders the system instruction for p. It is a pure
// function of its parameters.
func BuildInstruction(p InstructionParams) Instruction {
	vocab := p.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	schema := p.Schema
	if len(schema) == 0 {
		schema = RecordSchema
	}

	source := "a web page, possibly including popups or expanded panels"
	if p.Mode == HTMLBlocks {
		source = "HTML blocks copied from a procurement result page; read the visible text inside the markup"
	}

	var b strings.Builder
	fmt.Fprintf(&b, systemPreamble, source, labels(vocab, p.Targets))
	b.WriteString("\n")

	if p.ExplicitExclusion && len(p.Excluded) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, exclusionClause, labels(vocab, p.Excluded))
		b.WriteString("\n")
	}

	var keys strings.Builder
	for _, f := range schema {
		req := ""
		if f.Required {
			req = ", required"
		}
		fmt.Fprintf(&keys, "  - %s: %s%s\n", f.Key, f.Description, req)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, outputRules, keys.String())

	return Instruction{Version: InstructionVersion, System: b.String()}
}

// Prompt wraps text for submission after the instruction.
func (Instruction) Prompt(text string) string {
	return "TEXT:\n\"\"\"\n" + text + "\n\"\"\""
}

func labels(v *Vocabulary, statuses []model.Status) string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, `"`+v.Label(s)+`"`)
	}
	return strings.Join(out, " or ")
}
