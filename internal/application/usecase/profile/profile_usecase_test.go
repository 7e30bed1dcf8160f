package profile

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/wellness-api/adapters/event"
	"github.com/khoahotran/wellness-api/adapters/media_storage"
	"github.com/khoahotran/wellness-api/adapters/persistence"
	mediaUC "github.com/khoahotran/wellness-api/internal/application/usecase/media"
	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.UserEventPayload
}

func (p *recordingPublisher) PublishUserEvent(_ context.Context, e event.UserEventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func strPtr(s string) *string { return &s }

func jpeg(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return b
}

func photo(data []byte, mimeType string) *mediaUC.StorePhotoInput {
	return &mediaUC.StorePhotoInput{
		File: bytes.NewReader(data), Filename: "me.jpg", MimeType: mimeType, Size: int64(len(data)),
	}
}

type ProfileUseCaseSuite struct {
	suite.Suite
	repo      user.Repository
	publisher *recordingPublisher
	uploadDir string
	uc        *ProfileUseCase
	ava       *user.User
}

func (s *ProfileUseCaseSuite) SetupTest() {
	log := logger.NewNop()
	s.repo = persistence.NewMemoryUserRepo()
	s.publisher = &recordingPublisher{}
	s.uploadDir = s.T().TempDir()
	store := mediaUC.NewStorePhotoUseCase(media_storage.NewLocalAdapter(s.uploadDir), 10<<20, log)
	s.uc = NewProfileUseCase(s.repo, store, s.publisher, log)

	s.ava = &user.User{ID: uuid.New(), Name: "Ava", Email: "ava@x.com", PasswordHash: "h"}
	s.Require().NoError(s.repo.Create(context.Background(), s.ava))
}

func (s *ProfileUseCaseSuite) TestGetProfile() {
	out, err := s.uc.ExecuteGetProfile(context.Background(), GetProfileInput{UserID: s.ava.ID})
	s.Require().NoError(err)
	s.Equal("Ava", out.Profile.Name)
	s.Equal("ava@x.com", out.Profile.Email)
	s.Nil(out.Profile.ProfilePhoto)
}

func (s *ProfileUseCaseSuite) TestGetProfileMissingUser() {
	_, err := s.uc.ExecuteGetProfile(context.Background(), GetProfileInput{UserID: uuid.New()})
	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *ProfileUseCaseSuite) TestNoChangesReturnsCurrentView() {
	out, err := s.uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{UserID: s.ava.ID})
	s.Require().NoError(err)
	s.Equal("Ava", out.Profile.Name)

	out, err = s.uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{UserID: s.ava.ID, Name: strPtr("")})
	s.Require().NoError(err)
	s.Equal("Ava", out.Profile.Name)
}

func (s *ProfileUseCaseSuite) TestNameUpdateIsVerbatimAndKeepsPhoto() {
	ctx := context.Background()
	withPhoto, err := s.uc.ExecuteUpdateProfile(ctx, UpdateProfileInput{UserID: s.ava.ID, Photo: photo(jpeg(2048), "image/jpeg")})
	s.Require().NoError(err)
	s.Require().NotNil(withPhoto.Profile.ProfilePhoto)

	out, err := s.uc.ExecuteUpdateProfile(ctx, UpdateProfileInput{UserID: s.ava.ID, Name: strPtr("  Ava R ")})
	s.Require().NoError(err)
	s.Equal("  Ava R ", out.Profile.Name)
	s.Require().NotNil(out.Profile.ProfilePhoto)
	s.Equal(*withPhoto.Profile.ProfilePhoto, *out.Profile.ProfilePhoto)
}

func (s *ProfileUseCaseSuite) TestNameAndPhotoTogether() {
	out, err := s.uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{
		UserID: s.ava.ID, Name: strPtr("Ava R"), Photo: photo(jpeg(4096), "image/jpeg"),
	})
	s.Require().NoError(err)
	s.Equal("Ava R", out.Profile.Name)
	s.Require().NotNil(out.Profile.ProfilePhoto)
	s.FileExists(s.uploadDir + "/" + *out.Profile.ProfilePhoto)
}

func (s *ProfileUseCaseSuite) TestRejectedPhotoChangesNothing() {
	ctx := context.Background()
	_, err := s.uc.ExecuteUpdateProfile(ctx, UpdateProfileInput{
		UserID: s.ava.ID, Name: strPtr("Should not apply"), Photo: photo([]byte("%PDF-1.4"), "application/pdf"),
	})
	s.Require().ErrorIs(err, apperror.ErrInvalidInput)

	got, err := s.repo.FindByID(ctx, s.ava.ID)
	s.Require().NoError(err)
	s.Equal("Ava", got.Name)
	s.Nil(got.ProfilePhoto)

	entries, err := os.ReadDir(s.uploadDir)
	s.Require().NoError(err)
	s.Empty(entries)
	s.Empty(s.publisher.events)
}

func (s *ProfileUseCaseSuite) TestMissingUserStoresNothing() {
	_, err := s.uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{
		UserID: uuid.New(), Photo: photo(jpeg(1024), "image/jpeg"),
	})
	s.Require().ErrorIs(err, apperror.ErrNotFound)

	entries, err := os.ReadDir(s.uploadDir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ProfileUseCaseSuite) TestReplacingPhotoPublishesPrevious() {
	ctx := context.Background()
	first, err := s.uc.ExecuteUpdateProfile(ctx, UpdateProfileInput{UserID: s.ava.ID, Photo: photo(jpeg(1024), "image/jpeg")})
	s.Require().NoError(err)
	second, err := s.uc.ExecuteUpdateProfile(ctx, UpdateProfileInput{UserID: s.ava.ID, Photo: photo(jpeg(1024), "image/jpeg")})
	s.Require().NoError(err)

	s.Require().Len(s.publisher.events, 2)
	s.Nil(s.publisher.events[0].PreviousPhoto)

	last := s.publisher.events[1]
	s.Equal(event.UserEventTypeProfileUpdated, last.EventType)
	s.Require().NotNil(last.PreviousPhoto)
	s.Equal(*first.Profile.ProfilePhoto, *last.PreviousPhoto)
	s.Equal(*second.Profile.ProfilePhoto, *last.ProfilePhoto)

	// the old file stays until the worker removes it
	s.FileExists(s.uploadDir + "/" + *first.Profile.ProfilePhoto)
}

func (s *ProfileUseCaseSuite) TestNameTooLong() {
	long := string(bytes.Repeat([]byte("a"), 101))
	_, err := s.uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{UserID: s.ava.ID, Name: &long})
	s.ErrorIs(err, apperror.ErrInvalidInput)
}

func TestProfileUseCaseSuite(t *testing.T) {
	suite.Run(t, new(ProfileUseCaseSuite))
}
