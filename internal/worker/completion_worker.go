package worker

// Finishes dossier completions whose request updates failed inside the
// original HTTP call.

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CompletionJobPayload is the job envelope sent to QueueDossierCompletion.
type CompletionJobPayload struct {
	DossierID string `json:"dossier_id"`
}

// DossierCompleter is the slice of the dossier service the worker needs.
type DossierCompleter interface {
	RetryCompletion(ctx context.Context, id uuid.UUID) error
}

type CompletionWorker struct {
	dossiers DossierCompleter
}

func NewCompletionWorker(dossiers DossierCompleter) *CompletionWorker {
	return &CompletionWorker{dossiers: dossiers}
}

func (w *CompletionWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CompletionJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("completion_worker: invalid payload")
		return nil
	}
	id, err := uuid.Parse(payload.DossierID)
	if err != nil {
		log.Error().Str("dossier_id", payload.DossierID).Msg("completion_worker: invalid dossier id")
		return nil
	}
	if err := w.dossiers.RetryCompletion(ctx, id); err != nil {
		return err
	}
	log.Info().Str("dossier_id", payload.DossierID).Msg("completion_worker: dossier completion applied")
	return nil
}
