package submit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/logging"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/session"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// EventReporter is the backend call; *client.Client satisfies it.
type EventReporter interface {
	ReportEvent(ctx context.Context, token string, report models.EventReport) (*models.ReportResult, error)
}

// Reporter logs already-detected events, the path detectors use instead of
// uploading a clip for classification.
type Reporter struct {
	store    *session.Store
	backend  EventReporter
	validate *validator.Validate
}

func NewReporter(store *session.Store, backend EventReporter) *Reporter {
	return &Reporter{store: store, backend: backend, validate: newValidator()}
}

// Report validates and sends one event. Same failure rules as Submit.
func (r *Reporter) Report(ctx context.Context, report models.EventReport) (*models.ReportResult, error) {
	if err := r.validate.Struct(report); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fieldError(verrs[0])
		}
		return nil, err
	}

	token, ok := r.store.Get()
	if !ok {
		return nil, session.ErrNoSession
	}

	log := logging.With("report")
	res, err := r.backend.ReportEvent(ctx, token, report)
	if err != nil {
		if client.IsUnauthorized(err) {
			log.Warn().Msg("Session rejected while reporting, clearing session")
			if cerr := r.store.Clear(); cerr != nil {
				log.Error().Err(cerr).Msg("Failed to clear session")
			}
		}
		return nil, err
	}

	log.Info().Str("camera", report.CameraID).Str("event_type", report.EventType).Str("tx_hash", res.TxHash).Msg("Event reported")
	return res, nil
}

// DigestFile returns the lowercase hex SHA-256 of the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &client.ValidationError{Field: "enc_path", Reason: fmt.Sprintf("%s does not exist", path)}
		}
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
