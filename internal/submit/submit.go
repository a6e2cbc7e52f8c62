// Package submit is the write path: upload a clip for classification.
//
// It shares nothing with the poller except the session token, which it only
// reads. A classified clip shows up in the event list on a later poll.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/logging"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/session"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// Uploader is the backend call; *client.Client satisfies it.
type Uploader interface {
	ClassifyUpload(ctx context.Context, token, cameraID, fileName string, file io.Reader) (*models.UploadResult, error)
}

// Request is one submission.
type Request struct {
	CameraID string    `validate:"required"`
	FileName string    // multipart file name, defaults to clip.mp4
	File     io.Reader `validate:"required"`
}

type Submitter struct {
	store    *session.Store
	uploader Uploader
	validate *validator.Validate
}

func New(store *session.Store, uploader Uploader) *Submitter {
	return &Submitter{
		store:    store,
		uploader: uploader,
		validate: newValidator(),
	}
}

// newValidator reports fields by their json name when they have one.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Submit validates req locally, then uploads it. Missing input fails with a
// *client.ValidationError and a missing session with session.ErrNoSession,
// both without touching the network. A 401 clears the session.
func (s *Submitter) Submit(ctx context.Context, req Request) (*models.UploadResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	token, ok := s.store.Get()
	if !ok {
		return nil, session.ErrNoSession
	}
	if req.FileName == "" {
		req.FileName = "clip.mp4"
	}

	log := logging.With("submit")
	log.Info().Str("camera", req.CameraID).Str("file", req.FileName).Msg("Uploading clip for classification")

	res, err := s.uploader.ClassifyUpload(ctx, token, req.CameraID, req.FileName, req.File)
	if err != nil {
		if client.IsUnauthorized(err) {
			log.Warn().Msg("Session rejected during upload, clearing session")
			if cerr := s.store.Clear(); cerr != nil {
				log.Error().Err(cerr).Msg("Failed to clear session")
			}
		}
		return nil, err
	}

	log.Info().Str("event_type", res.EventType).Str("tx_hash", res.TxHash).Msg("Clip classified")
	return res, nil
}

func (s *Submitter) check(req Request) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Field() {
	case "File":
		return &client.ValidationError{Field: "file", Reason: "no file selected"}
	case "CameraID":
		return &client.ValidationError{Field: "camera_id", Reason: "camera id is required"}
	default:
		return fieldError(fe)
	}
}

func fieldError(fe validator.FieldError) *client.ValidationError {
	reason := fe.Tag()
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "hexadecimal":
		reason = "must be hexadecimal"
	case "len":
		reason = fmt.Sprintf("must be %s characters", fe.Param())
	case "gte", "lte":
		reason = "must be between 0 and 1"
	}
	return &client.ValidationError{Field: fe.Field(), Reason: reason}
}

// OpenFile opens path for a Request. The caller closes the returned file.
func OpenFile(path string) (*os.File, string, error) {
	if path == "" {
		return nil, "", &client.ValidationError{Field: "file", Reason: "no file selected"}
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", &client.ValidationError{Field: "file", Reason: fmt.Sprintf("%s does not exist", path)}
		}
		return nil, "", fmt.Errorf("open clip: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("stat clip: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, "", &client.ValidationError{Field: "file", Reason: fmt.Sprintf("%s is a directory", path)}
	}
	return f, filepath.Base(path), nil
}
