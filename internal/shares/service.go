package shares

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/utils"
)

var (
	// ErrRateLimited means the recording's share window is exhausted.
	ErrRateLimited = errors.New("too many share requests for this recording")
	// ErrRecordingNotFound means the recording does not exist.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrRecordingNotReady means the recording has no playable media yet.
	ErrRecordingNotReady = errors.New("recording is not ready to share")
	// ErrNothingToShare means no share could be built from the request.
	ErrNothingToShare = errors.New("nothing to share")
	// ErrShareNotFound means no share matches the token.
	ErrShareNotFound = errors.New("share not found")
	// ErrPasswordRequired means the share is protected and no password was given.
	ErrPasswordRequired = errors.New("password required")
	// ErrInvalidPassword means the supplied password does not match.
	ErrInvalidPassword = errors.New("invalid password")
)

// shareStore is the subset of the repository the service needs.
type shareStore interface {
	Replace(ctx context.Context, recordingID uuid.UUID, shares []*models.VideoShare) error
	GetByToken(ctx context.Context, token string) (*models.VideoShare, error)
	ListForRecording(ctx context.Context, recordingID uuid.UUID) ([]models.VideoShare, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	DeleteForRecording(ctx context.Context, recordingID uuid.UUID) (int64, error)
}

// recordingGetter loads the recording being shared.
type recordingGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
}

// orgResolver answers organization questions for internal shares: which org
// the sharer belongs to, and whether a viewer is a member.
type orgResolver interface {
	PrimaryOrganizationID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// auditRecorder appends to the audit trail.
type auditRecorder interface {
	Record(ctx context.Context, userID *uuid.UUID, action string, details map[string]interface{}) error
}

// limiter gates share creation per recording.
type limiter interface {
	Allow(key string) bool
}

// Service implements share creation, resolution and revocation.
type Service struct {
	shares       shareStore
	recordings   recordingGetter
	orgs         orgResolver
	audit        auditRecorder
	limit        limiter
	publicOrigin string
	logger       *zap.Logger
}

// NewService creates a share service.
func NewService(shares shareStore, recordings recordingGetter, orgs orgResolver, audit auditRecorder, limit limiter, publicOrigin string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		shares:       shares,
		recordings:   recordings,
		orgs:         orgs,
		audit:        audit,
		limit:        limit,
		publicOrigin: publicOrigin,
		logger:       logger,
	}
}

// CreateInput describes one share request. Internal and External may both be
// set; the resulting set replaces whatever the recording had before.
type CreateInput struct {
	RecordingID uuid.UUID
	UserID      uuid.UUID
	Internal    bool
	External    bool
	Password    string // optional, external only
}

// CreateResult is the installed share set.
type CreateResult struct {
	Shares      []models.VideoShare `json:"shares"`
	ExternalURL string              `json:"external_url,omitempty"`
}

func rateKey(recordingID uuid.UUID) string {
	return "share_" + recordingID.String()
}

// Create builds and installs the recording's share set.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if !s.limit.Allow(rateKey(in.RecordingID)) {
		return nil, ErrRateLimited
	}

	rec, err := s.recordings.GetByID(ctx, in.RecordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordingNotFound
	}
	if rec.Status != models.RecordingStatusReady {
		return nil, ErrRecordingNotReady
	}

	var toInstall []*models.VideoShare
	if in.Internal {
		orgID, err := s.orgs.PrimaryOrganizationID(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if orgID == uuid.Nil {
			// No organization to share into; skip rather than fail the request.
			s.logger.Debug("internal share skipped, user has no organization",
				zap.String("user_id", in.UserID.String()))
		} else {
			toInstall = append(toInstall, &models.VideoShare{
				ShareType:      models.ShareTypeInternal,
				OrganizationID: &orgID,
				SharedBy:       in.UserID,
			})
		}
	}

	externalURL := ""
	if in.External {
		token, err := utils.GenerateShareToken()
		if err != nil {
			return nil, err
		}
		hash := ""
		if in.Password != "" {
			hash, err = utils.HashPassword(in.Password)
			if err != nil {
				return nil, err
			}
		}
		toInstall = append(toInstall, &models.VideoShare{
			ShareType:     models.ShareTypeExternal,
			ExternalToken: token,
			PasswordHash:  hash,
			SharedBy:      in.UserID,
		})
		externalURL = s.publicOrigin + "/shared/" + token
	}

	if len(toInstall) == 0 {
		return nil, ErrNothingToShare
	}

	types := make([]string, 0, len(toInstall))
	for _, sh := range toInstall {
		types = append(types, sh.ShareType)
	}
	// The attempt is audited before the replace, so a failed insert still
	// leaves a trace of the destructive delete it caused.
	s.recordAudit(ctx, &in.UserID, models.AuditActionShareCreated, map[string]interface{}{
		"recording_id":       in.RecordingID.String(),
		"share_types":        types,
		"password_protected": in.Password != "",
	})

	if err := s.shares.Replace(ctx, in.RecordingID, toInstall); err != nil {
		return nil, err
	}

	result := CreateResult{Shares: make([]models.VideoShare, 0, len(toInstall)), ExternalURL: externalURL}
	for _, sh := range toInstall {
		result.Shares = append(result.Shares, *sh)
	}
	return &result, nil
}

// Resolve looks up an external share by token and returns its recording. View
// counting and auditing happen here so every resolution path is covered.
func (s *Service) Resolve(ctx context.Context, token, password string) (*models.Recording, *models.VideoShare, error) {
	share, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if share == nil {
		return nil, nil, ErrShareNotFound
	}

	if share.PasswordProtected() {
		if password == "" {
			return nil, nil, ErrPasswordRequired
		}
		if !utils.CheckPassword(password, share.PasswordHash) {
			s.recordAudit(ctx, nil, models.AuditActionSharePasswordDenied, map[string]interface{}{
				"share_id":     share.ID.String(),
				"recording_id": share.RecordingID.String(),
			})
			return nil, nil, ErrInvalidPassword
		}
	}

	rec, err := s.recordings.GetByID(ctx, share.RecordingID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrShareNotFound
	}

	if err := s.shares.IncrementViewCount(ctx, share.ID); err != nil {
		s.logger.Warn("increment view count failed", zap.Error(err), zap.String("share_id", share.ID.String()))
	}
	share.ViewCount++
	s.recordAudit(ctx, nil, models.AuditActionShareViewed, map[string]interface{}{
		"share_id":     share.ID.String(),
		"recording_id": share.RecordingID.String(),
	})
	return rec, share, nil
}

// CanView reports whether the user can view the recording through one of its
// internal shares, by organization membership.
func (s *Service) CanView(ctx context.Context, recordingID, userID uuid.UUID) (bool, error) {
	list, err := s.shares.ListForRecording(ctx, recordingID)
	if err != nil {
		return false, err
	}
	for i := range list {
		sh := &list[i]
		if sh.ShareType != models.ShareTypeInternal || sh.OrganizationID == nil {
			continue
		}
		member, err := s.orgs.IsMember(ctx, *sh.OrganizationID, userID)
		if err != nil {
			return false, err
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

// Revoke removes every share of a recording.
func (s *Service) Revoke(ctx context.Context, recordingID, userID uuid.UUID) (int64, error) {
	revoked, err := s.shares.DeleteForRecording(ctx, recordingID)
	if err != nil {
		return 0, err
	}
	if revoked > 0 {
		s.recordAudit(ctx, &userID, models.AuditActionShareRevoked, map[string]interface{}{
			"recording_id": recordingID.String(),
			"revoked":      revoked,
		})
	}
	return revoked, nil
}

// List returns the recording's current shares.
func (s *Service) List(ctx context.Context, recordingID uuid.UUID) ([]models.VideoShare, error) {
	return s.shares.ListForRecording(ctx, recordingID)
}

func (s *Service) recordAudit(ctx context.Context, userID *uuid.UUID, action string, details map[string]interface{}) {
	if err := s.audit.Record(ctx, userID, action, details); err != nil {
		s.logger.Warn("audit record failed", zap.Error(err), zap.String("action", action))
	}
}
