package authn_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/NickArm/Invoice-System-sub001/internal/auth"
	"github.com/NickArm/Invoice-System-sub001/internal/http/authn"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

func TestMiddleware(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	other := auth.NewTokenService("other-secret", time.Hour)
	id := uuid.New()

	valid, _, err := tokens.Issue(id, "user")
	assert.NoError(t, err)

	forged, _, err := other.Issue(id, "admin")
	assert.NoError(t, err)

	type testCase struct {
		name       string
		header     string
		setupMock  func(repo *user.MockRepository)
		wantStatus int
	}

	tests := []testCase{
		{
			name:   "ValidToken",
			header: "Bearer " + valid,
			setupMock: func(repo *user.MockRepository) {
				repo.EXPECT().GetUser(gomock.Any(), id).Return(&user.User{ID: id, Role: user.RoleUser, IsActive: true}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "MissingHeader",
			setupMock:  func(*user.MockRepository) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "WrongScheme",
			header:     "Basic " + valid,
			setupMock:  func(*user.MockRepository) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "ForgedSignature",
			header:     "Bearer " + forged,
			setupMock:  func(*user.MockRepository) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "DeletedUser",
			header: "Bearer " + valid,
			setupMock: func(repo *user.MockRepository) {
				repo.EXPECT().GetUser(gomock.Any(), id).Return(nil, user.ErrNotFound)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "DisabledUser",
			header: "Bearer " + valid,
			setupMock: func(repo *user.MockRepository) {
				repo.EXPECT().GetUser(gomock.Any(), id).Return(&user.User{ID: id, IsActive: false}, nil)
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := user.NewMockRepository(ctrl)
			tt.setupMock(repo)

			var got auth.Principal

			h := authn.Middleware(tokens, user.NewService(repo))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = authn.Principal(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, id, got.UserID)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := authn.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for role, want := range map[string]int{"admin": http.StatusTeapot, "user": http.StatusForbidden, "": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: uuid.New(), Role: role}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}
