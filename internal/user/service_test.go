package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	users   map[uuid.UUID]*User
	updates int
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id uuid.UUID, p ProfileUpdate) (*User, error) {
	f.updates++
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Name != nil {
		u.Name = p.Name
	}
	if p.Image != nil {
		if *p.Image == "" {
			u.Image = nil
		} else {
			u.Image = p.Image
		}
	}
	return u, nil
}

func strPtr(s string) *string { return &s }

func TestProfileUpdate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		update  ProfileUpdate
		wantErr error
	}{
		{name: "empty update", update: ProfileUpdate{}},
		{name: "valid name", update: ProfileUpdate{Name: strPtr("Al")}},
		{name: "short name", update: ProfileUpdate{Name: strPtr(" A ")}, wantErr: ErrNameTooShort},
		{name: "https image", update: ProfileUpdate{Image: strPtr("https://cdn.example.com/a.png")}},
		{name: "clear image", update: ProfileUpdate{Image: strPtr("")}},
		{name: "relative image", update: ProfileUpdate{Image: strPtr("/a.png")}, wantErr: ErrInvalidImageURL},
		{name: "not a url", update: ProfileUpdate{Image: strPtr("picture")}, wantErr: ErrInvalidImageURL},
		{name: "ftp image", update: ProfileUpdate{Image: strPtr("ftp://example.com/a.png")}, wantErr: ErrInvalidImageURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_UpdateProfile(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{users: map[uuid.UUID]*User{
		id: {ID: id, Email: "ada@example.com", Image: strPtr("https://example.com/old.png")},
	}}
	svc := NewService(store)
	ctx := context.Background()

	u, err := svc.UpdateProfile(ctx, id, ProfileUpdate{Name: strPtr("Ada"), Image: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", *u.Name)
	assert.Nil(t, u.Image)

	_, err = svc.UpdateProfile(ctx, id, ProfileUpdate{Name: strPtr("A")})
	assert.ErrorIs(t, err, ErrNameTooShort)
	assert.Equal(t, 1, store.updates)

	u, err = svc.UpdateProfile(ctx, id, ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, 1, store.updates, "empty update only reads")

	_, err = svc.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
