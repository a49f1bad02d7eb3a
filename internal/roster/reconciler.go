// Package roster rebuilds the participant roster from the result blobs: one
// pass over licence records, one cross-linking pass over identity records.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jae-tennis/scan-pipeline/constants"
	"github.com/jae-tennis/scan-pipeline/internal/entity"
	"github.com/jae-tennis/scan-pipeline/internal/storage"
)

// Reconciler materializes the roster view from whatever result blobs exist.
// Every call recomputes from scratch; the results bucket stays small (one
// JSON blob per person), so freshness beats caching here.
type Reconciler struct {
	results storage.BlobStore
	logger  *slog.Logger
}

func NewReconciler(results storage.BlobStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{results: results, logger: logger}
}

// BuildRoster returns the mapping from licence number to participant record.
func (r *Reconciler) BuildRoster(ctx context.Context) (map[string]*entity.ParticipantRecord, error) {
	keys, err := r.results.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	roster := make(map[string]*entity.ParticipantRecord)

	// pass 1: licence records keyed by licence number
	for _, key := range keys {
		if !strings.HasPrefix(key, constants.PrefixLicence+"_") || !strings.HasSuffix(key, constants.ResultExt) {
			continue
		}
		b, err := r.results.Get(ctx, key)
		if err != nil {
			r.logger.Warn("roster.licence.read_failed", "key", key, "error", err)
			continue
		}
		var res entity.ExtractionResult
		if err := json.Unmarshal(b, &res); err != nil {
			r.logger.Warn("roster.licence.decode_failed", "key", key, "error", err)
			continue
		}
		if res.LicenceNo == "" {
			continue
		}
		roster[res.LicenceNo] = &entity.ParticipantRecord{
			Nom:           res.Nom,
			Prenom:        res.Prenom,
			LicenceNo:     res.LicenceNo,
			AnneeValidite: res.AnneeValidite,
			Classement:    res.Classement,
			Club:          res.Club,
			Statut:        res.Statut,
			ImageURL:      PublicImageURL(res.ImageURI),
		}
	}

	// pass 2: identity records flag id_checked by normalized name
	for _, key := range keys {
		if !strings.HasPrefix(key, constants.PrefixIdentity+"_") || !strings.HasSuffix(key, constants.ResultExt) {
			continue
		}
		prenom, nom, ok := ParseNameFromKey(key, constants.PrefixIdentity)
		if !ok {
			r.logger.Warn("roster.identity.unparseable_name", "key", key)
			continue
		}
		np, nn := Normalize(prenom), Normalize(nom)
		for _, rec := range roster {
			if Normalize(rec.Prenom) == np && Normalize(rec.Nom) == nn {
				rec.IDChecked = true
				break
			}
		}
	}

	return roster, nil
}

// List returns the roster as a slice ordered by licence number, for the
// query surface and the export.
func (r *Reconciler) List(ctx context.Context) ([]entity.ParticipantRecord, error) {
	roster, err := r.BuildRoster(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ParticipantRecord, 0, len(roster))
	for _, rec := range roster {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicenceNo < out[j].LicenceNo })
	return out, nil
}

// ParseNameFromKey extracts {prenom, nom} from a result blob name. The join
// delimiter is a versioned format: current blobs use '_', an earlier
// revision wrote '-'; both still sit in the bucket, so both are accepted.
// Names that do not split into exactly two parts are skipped.
func ParseNameFromKey(key, prefix string) (prenom, nom string, ok bool) {
	base := strings.TrimSuffix(strings.TrimPrefix(key, prefix+"_"), constants.ResultExt)
	for _, delim := range []string{"_", "-"} {
		parts := strings.Split(base, delim)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], true
		}
	}
	return "", "", false
}

// PublicImageURL translates a stored gs://bucket/key reference into a
// fetchable HTTPS URL. Malformed references yield an empty URL instead of an
// error.
func PublicImageURL(imageURI string) string {
	parts := strings.Split(imageURI, "/")
	// gs://bucket/key... splits into ["gs:", "", bucket, key parts...]
	if len(parts) < 4 || parts[0] != "gs:" || parts[1] != "" || parts[2] == "" {
		return ""
	}
	return "https://storage.googleapis.com/" + strings.Join(parts[2:], "/")
}
