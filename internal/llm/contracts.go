package llm

import "context"

// Confidence tiers the model is asked to report. Only the top tier passes
// the overall quality check.
const (
	ConfidenceHigh   = "haute"
	ConfidenceMedium = "moyenne"
	ConfidenceLow    = "basse"
)

// DocumentFields is the normalized shape we want from the model, after
// sanitation. All values are strings; missing fields stay empty.
type DocumentFields struct {
	Type          string `json:"type"`
	Nom           string `json:"nom"`
	Prenom        string `json:"prenom"`
	LicenceNo     string `json:"licence_no,omitempty"`
	AnneeValidite string `json:"annee_validite,omitempty"`
	Classement    string `json:"classement,omitempty"`
	Club          string `json:"club,omitempty"`
	Statut        string `json:"statut,omitempty"`
	Confidence    string `json:"confidence,omitempty"`
}

// Extractor is the interface the pipeline depends on. The implementation is
// an unreliable prose-producing text generator: it is asked for strict JSON
// but may return prose, partial JSON or fenced code blocks. Callers must run
// the response through ParseModelResponse.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte, mimeType string) (string, error)
}
