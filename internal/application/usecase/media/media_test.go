package media

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/wellness-api/adapters/event"
	"github.com/khoahotran/wellness-api/adapters/media_storage"
	"github.com/khoahotran/wellness-api/adapters/persistence"
	"github.com/khoahotran/wellness-api/internal/domain/media"
	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

const maxUpload = 10 << 20

func jpegOfSize(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	for i := 11; i < n; i++ {
		b[i] = byte(i % 251)
	}
	return b
}

func newStore(t *testing.T) (*StorePhotoUseCase, string) {
	dir := filepath.Join(t.TempDir(), "uploads")
	return NewStorePhotoUseCase(media_storage.NewLocalAdapter(dir), maxUpload, logger.NewNop()), dir
}

func TestStorePhoto_FiveMiBJPEGRoundTrips(t *testing.T) {
	uc, dir := newStore(t)
	data := jpegOfSize(5 << 20)

	out, err := uc.Execute(context.Background(), StorePhotoInput{
		File: bytes.NewReader(data), Filename: "me.jpg", MimeType: "image/jpeg", Size: int64(len(data)),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Contains(t, out.Ref.String(), "me.jpg")

	stored, err := os.ReadFile(filepath.Join(dir, out.Ref.String()))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, stored), "stored bytes differ from upload")

	opened, err := NewOpenPhotoUseCase(media_storage.NewLocalAdapter(dir)).Execute(context.Background(), out.Ref.String())
	require.NoError(t, err)
	defer opened.Body.Close()
	read, err := io.ReadAll(opened.Body)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), opened.Info.Size)
	assert.True(t, bytes.Equal(data, read))
}

func TestStorePhoto_AcceptsNamesWithDotRuns(t *testing.T) {
	uc, dir := newStore(t)
	for _, name := range []string{"my..photo.jpg", "IMG_0001..jpg", "...jpg"} {
		data := jpegOfSize(1024)
		out, err := uc.Execute(context.Background(), StorePhotoInput{
			File: bytes.NewReader(data), Filename: name, MimeType: "image/jpeg", Size: int64(len(data)),
		})
		require.NoError(t, err, name)
		assert.NotContains(t, out.Ref.String(), "..")
		assert.FileExists(t, filepath.Join(dir, out.Ref.String()))
	}
}

func TestStorePhoto_RejectsOversizedDeclaration(t *testing.T) {
	uc, dir := newStore(t)
	data := jpegOfSize(11 << 20)

	_, err := uc.Execute(context.Background(), StorePhotoInput{
		File: bytes.NewReader(data), Filename: "big.jpg", MimeType: "image/jpeg", Size: int64(len(data)),
	})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestStorePhoto_RejectsBodyLongerThanCeiling(t *testing.T) {
	uc, dir := newStore(t)
	data := jpegOfSize(11 << 20)

	// Declared size lies; the stream itself is capped.
	_, err := uc.Execute(context.Background(), StorePhotoInput{
		File: bytes.NewReader(data), Filename: "liar.jpg", MimeType: "image/jpeg", Size: 1024,
	})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStorePhoto_ExactlyAtCeilingIsAccepted(t *testing.T) {
	uc, _ := newStore(t)
	data := jpegOfSize(maxUpload)

	_, err := uc.Execute(context.Background(), StorePhotoInput{
		File: bytes.NewReader(data), Filename: "edge.jpg", MimeType: "image/jpeg", Size: int64(len(data)),
	})
	assert.NoError(t, err)
}

func TestStorePhoto_RejectsDisallowedTypes(t *testing.T) {
	uc, _ := newStore(t)

	cases := []struct {
		name     string
		mimeType string
		data     []byte
	}{
		{"declared pdf", "application/pdf", []byte("%PDF-1.4 some pdf")},
		{"declared svg", "image/svg+xml", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)},
		{"declared jpeg but text", "image/jpeg", []byte("just some plain text pretending")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), StorePhotoInput{
				File: bytes.NewReader(tc.data), Filename: "x", MimeType: tc.mimeType, Size: int64(len(tc.data)),
			})
			require.ErrorIs(t, err, apperror.ErrInvalidInput)
			_, body := apperror.ToResponse(err)
			assert.Equal(t, "Invalid file type. Only JPEG, PNG, and GIF are allowed.", body["msg"])
		})
	}
}

func TestStorePhoto_AcceptsGIFAndPNG(t *testing.T) {
	uc, _ := newStore(t)
	gif := append([]byte("GIF89a"), make([]byte, 64)...)
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

	for name, tc := range map[string]struct {
		mimeType string
		data     []byte
	}{
		"gif": {"image/gif", gif},
		"png": {"image/png", png},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := uc.Execute(context.Background(), StorePhotoInput{
				File: bytes.NewReader(tc.data), Filename: "a." + name, MimeType: tc.mimeType, Size: int64(len(tc.data)),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.mimeType, out.ContentType)
		})
	}
}

func TestStorePhoto_RejectsEmpty(t *testing.T) {
	uc, _ := newStore(t)
	_, err := uc.Execute(context.Background(), StorePhotoInput{
		File: bytes.NewReader(nil), Filename: "e.jpg", MimeType: "image/jpeg", Size: 0,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestStorePhoto_SameNameGetsDistinctRefs(t *testing.T) {
	uc, _ := newStore(t)
	data := jpegOfSize(1024)

	a, err := uc.Execute(context.Background(), StorePhotoInput{File: bytes.NewReader(data), Filename: "me.jpg", MimeType: "image/jpeg", Size: 1024})
	require.NoError(t, err)
	b, err := uc.Execute(context.Background(), StorePhotoInput{File: bytes.NewReader(data), Filename: "me.jpg", MimeType: "image/jpeg", Size: 1024})
	require.NoError(t, err)
	assert.NotEqual(t, a.Ref, b.Ref)
}

func TestOpenPhoto_Errors(t *testing.T) {
	uc := NewOpenPhotoUseCase(media_storage.NewLocalAdapter(t.TempDir()))

	_, err := uc.Execute(context.Background(), "../secret")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = uc.Execute(context.Background(), "1700000000000-deadbeef-missing.jpg")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCleanupPhoto(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storage := media_storage.NewLocalAdapter(dir)
	repo := persistence.NewMemoryUserRepo()
	uc := NewCleanupPhotoUseCase(storage, repo, logger.NewNop())

	oldRef := media.FileRef("1700000000000-aaaaaaaa-old.jpg")
	newRef := media.FileRef("1700000000001-bbbbbbbb-new.jpg")
	for _, ref := range []media.FileRef{oldRef, newRef} {
		require.NoError(t, storage.Save(ctx, ref, bytes.NewReader(jpegOfSize(32)), "image/jpeg"))
	}

	u := &user.User{ID: uuid.New(), Name: "Ava", Email: "ava@x.com", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, u))
	newPhoto := newRef.String()
	_, err := repo.UpdateProfile(ctx, u.ID, user.ProfileChanges{ProfilePhoto: &newPhoto})
	require.NoError(t, err)

	t.Run("other events are ignored", func(t *testing.T) {
		prev := oldRef.String()
		require.NoError(t, uc.Execute(ctx, event.UserEventPayload{EventType: event.UserEventTypeSignedUp, UserID: u.ID, PreviousPhoto: &prev}))
		assert.FileExists(t, filepath.Join(dir, oldRef.String()))
	})

	t.Run("current photo is kept", func(t *testing.T) {
		prev := newRef.String()
		require.NoError(t, uc.Execute(ctx, event.UserEventPayload{EventType: event.UserEventTypeProfileUpdated, UserID: u.ID, PreviousPhoto: &prev}))
		assert.FileExists(t, filepath.Join(dir, newRef.String()))
	})

	t.Run("replaced photo is removed", func(t *testing.T) {
		prev := oldRef.String()
		require.NoError(t, uc.Execute(ctx, event.UserEventPayload{
			EventType: event.UserEventTypeProfileUpdated, UserID: u.ID, ProfilePhoto: &newPhoto, PreviousPhoto: &prev,
		}))
		assert.NoFileExists(t, filepath.Join(dir, oldRef.String()))
		assert.FileExists(t, filepath.Join(dir, newRef.String()))
	})
}
