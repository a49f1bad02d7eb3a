package entity

import (
	"fmt"

	"github.com/jae-tennis/scan-pipeline/constants"
)

// SourceObject identifies one uploaded image in the external store. It is
// externally owned; the pipeline reads it once per processing attempt.
type SourceObject struct {
	Bucket string
	Key    string
}

// ExtractionResult is the structured record persisted per processed
// document. Persisted once as indented JSON, never updated in place; a later
// scan of the same person overwrites the blob of the same computed name.
type ExtractionResult struct {
	Type          string `json:"type"`
	Nom           string `json:"nom"`
	Prenom        string `json:"prenom"`
	LicenceNo     string `json:"licence_no,omitempty"`
	AnneeValidite string `json:"annee_validite,omitempty"`
	Classement    string `json:"classement,omitempty"`
	Club          string `json:"club,omitempty"`
	Statut        string `json:"statut,omitempty"`
	Confidence    string `json:"confidence,omitempty"`
	Notes         string `json:"notes,omitempty"`
	ImageURI      string `json:"image_uri"`

	IsBlurry      bool `json:"is_blurry"`
	HasGlare      bool `json:"has_glare"`
	IsLowContrast bool `json:"is_low_contrast"`
	// QualityCheckPassed is false whenever the model's own confidence is
	// below the top tier. The assessor flags above are recorded but do not
	// veto; only confidence does.
	QualityCheckPassed bool `json:"quality_check_passed"`
}

// ParticipantRecord is the derived roster entry, keyed by licence number.
// Rebuilt from scratch on every roster query, never persisted.
type ParticipantRecord struct {
	Nom           string `json:"nom"`
	Prenom        string `json:"prenom"`
	LicenceNo     string `json:"licence_no"`
	AnneeValidite string `json:"annee_validite,omitempty"`
	Classement    string `json:"classement,omitempty"`
	Club          string `json:"club,omitempty"`
	Statut        string `json:"statut,omitempty"`
	IDChecked     bool   `json:"id_checked"`
	ImageURL      string `json:"image_url,omitempty"`
}

// ImageURI builds the canonical gs://bucket/key reference stored with each
// result.
func ImageURI(bucket, key string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, key)
}

// BuildResultKey computes the persisted blob name
// {prefix}_{prenom}_{nom}.json. Missing names default to "unknown", like the
// rest of the naming contract this is not safe against names containing the
// delimiter.
func BuildResultKey(prefix, prenom, nom string) string {
	if prenom == "" {
		prenom = "unknown"
	}
	if nom == "" {
		nom = "unknown"
	}
	return fmt.Sprintf("%s_%s_%s%s", prefix, prenom, nom, constants.ResultExt)
}
